package activitymap

import (
	"context"
	"strings"
	"time"

	session "github.com/goliatone/go-session"
)

const (
	// MetadataKeyFromStatus stores the provider status before the action.
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the provider status after the action.
	MetadataKeyToStatus = "to_status"
)

const (
	defaultChannel    = "storefront"
	defaultObjectType = "session"
	anonymousActorID  = "anonymous"
)

// Record is a transport agnostic shape of a session activity event.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization.
type Option func(*options)

type options struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// WithChannel sets the record channel.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the record object type.
func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used for events without a user.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time used for events that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Normalize converts a session activity event into a Record. The verb drops
// the "session." namespace, so "session.login.success" becomes
// "login.success".
func Normalize(event session.ActivityEvent, opts ...Option) Record {
	o := build(opts)

	actorID := strings.TrimSpace(event.UserID)
	if actorID == "" {
		actorID = o.actorFallback
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now().UTC()
	}

	return Record{
		ActorID:    actorID,
		Verb:       strings.TrimPrefix(string(event.EventType), "session."),
		ObjectType: o.objectType,
		Channel:    o.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt,
	}
}

// Sink adapts fn into a session.ActivitySink that receives normalized records.
func Sink(fn func(context.Context, Record) error, opts ...Option) session.ActivitySink {
	return session.ActivitySinkFunc(func(ctx context.Context, event session.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(ctx, Normalize(event, opts...))
	})
}

func build(opts []Option) options {
	o := options{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: anonymousActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func metadata(event session.ActivityEvent) map[string]any {
	var out map[string]any
	if len(event.Metadata) > 0 {
		out = make(map[string]any, len(event.Metadata)+2)
		for key, value := range event.Metadata {
			out[key] = value
		}
	}

	set := func(key string, status session.Status) {
		if status == "" {
			return
		}
		if out == nil {
			out = map[string]any{}
		}
		out[key] = string(status)
	}
	set(MetadataKeyFromStatus, event.FromStatus)
	set(MetadataKeyToStatus, event.ToStatus)

	return out
}
