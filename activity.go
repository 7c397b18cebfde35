package session

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventStatusChanged  ActivityEventType = "session.status.changed"
	ActivityEventBoot           ActivityEventType = "session.boot"
	ActivityEventLoginSuccess   ActivityEventType = "session.login.success"
	ActivityEventLoginFailure   ActivityEventType = "session.login.failure"
	ActivityEventRegister       ActivityEventType = "session.register"
	ActivityEventLogout         ActivityEventType = "session.logout"
	ActivityEventLogoutFailure  ActivityEventType = "session.logout.failure"
	ActivityEventTokenRefreshed ActivityEventType = "session.token.refreshed"
	ActivityEventTokenInvalid   ActivityEventType = "session.token.invalid"
)

// ActivityEvent captures audit-friendly information about a session action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	FromStatus Status
	ToStatus   Status
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// ActivitySinks fans an event out to every non-nil sink in order. All sinks
// receive the event; the first error is returned.
func ActivitySinks(sinks ...ActivitySink) ActivitySink {
	kept := make([]ActivitySink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return noopActivitySink{}
	case 1:
		return kept[0]
	}
	return teeActivitySink(kept)
}

type teeActivitySink []ActivitySink

func (t teeActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range t {
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
