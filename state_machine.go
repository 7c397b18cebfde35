package session

import (
	"context"
	"sync"
	"time"
)

// Status is the provider lifecycle state.
type Status string

const (
	// StatusUnknown is the state before the boot refresh resolves.
	StatusUnknown Status = "unknown"
	// StatusAuthenticated means the store holds a session.
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means the store holds no session.
	StatusAnonymous Status = "anonymous"
)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks.
type TransitionContext struct {
	UserID string
	From   Status
	To     Status
	Meta   TransitionMetadata
}

// TransitionHook runs after a transition was applied. Hook errors are logged,
// the transition is not rolled back.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*StateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock Clock) StateMachineOption {
	return func(sm *StateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish transitions.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *StateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for hook and sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *StateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithStateMachineHook adds a hook executed after every applied transition.
func WithStateMachineHook(h TransitionHook) StateMachineOption {
	return func(sm *StateMachine) {
		if h != nil {
			sm.hooks = append(sm.hooks, h)
		}
	}
}

// StateMachine tracks the provider status and validates transitions.
type StateMachine struct {
	mu           sync.RWMutex
	current      Status
	transitions  map[Status]map[Status]struct{}
	hooks        []TransitionHook
	now          Clock
	activitySink ActivitySink
	logger       Logger
}

// NewStateMachine returns a machine in StatusUnknown.
func NewStateMachine(opts ...StateMachineOption) *StateMachine {
	sm := &StateMachine{
		current: StatusUnknown,
		transitions: map[Status]map[Status]struct{}{
			StatusUnknown: {
				StatusAuthenticated: {},
				StatusAnonymous:     {},
			},
			StatusAuthenticated: {
				StatusAnonymous: {},
			},
			StatusAnonymous: {
				StatusAuthenticated: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

// Current returns the current status.
func (sm *StateMachine) Current() Status {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// CanTransition reports whether from -> to is allowed. Self transitions are
// always allowed and are no-ops.
func (sm *StateMachine) CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Transition moves to target. It returns the previous status and whether a
// change happened. Moving back to StatusUnknown, or to an unknown status,
// returns ErrInvalidTransition.
func (sm *StateMachine) Transition(ctx context.Context, userID string, target Status, meta TransitionMetadata) (Status, bool, error) {
	sm.mu.Lock()
	from := sm.current

	if target == "" || !sm.CanTransition(from, target) {
		sm.mu.Unlock()
		return from, false, enrich(ErrInvalidTransition, nil, map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if from == target {
		sm.mu.Unlock()
		return from, false, nil
	}

	sm.current = target
	sm.mu.Unlock()

	tc := TransitionContext{
		UserID: userID,
		From:   from,
		To:     target,
		Meta:   meta,
	}

	sm.runHooks(ctx, tc)

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventStatusChanged,
		UserID:     userID,
		FromStatus: from,
		ToStatus:   target,
		Metadata:   transitionMetadata(meta),
	})

	return from, true, nil
}

func (sm *StateMachine) runHooks(ctx context.Context, tc TransitionContext) {
	for _, hook := range sm.hooks {
		if err := hook(ctx, tc); err != nil {
			sm.logger.Warn("session transition hook failed", "from", tc.From, "to", tc.To, "error", err)
		}
	}
}

func (sm *StateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error", "error", err)
	}
}

func transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
