package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-session/eventbus"
)

// Provider keeps the store, the refresher and the status machine consistent.
// It is the only component performing login, registration and logout, and it
// follows background refreshes published by the Refresher while mounted.
//
// Providers are created by Runtime.Mount.
//
// Listeners notified by a Provider mutation (store subscribers, status
// subscribers) run while the mutation is in progress and must not call
// Boot, Login, Logout or Unmount synchronously.
type Provider struct {
	runtime   *Runtime
	actions   Actions
	store     *Store
	refresher *Refresher
	bus       *eventbus.Bus
	machine   *StateMachine
	sink      ActivitySink
	logger    Logger
	now       Clock

	mu           sync.Mutex
	unsubscribes []func()
	mounted      atomic.Bool
}

func newProvider(r *Runtime) *Provider {
	p := &Provider{
		runtime:   r,
		actions:   r.actions,
		store:     r.store,
		refresher: r.refresher,
		bus:       r.bus,
		sink:      r.sink,
		logger:    r.logger,
		now:       r.now,
	}

	machineOpts := []StateMachineOption{
		WithStateMachineClock(r.now),
		WithStateMachineActivitySink(r.sink),
		WithStateMachineLogger(r.logger),
	}
	for _, hook := range r.hooks {
		machineOpts = append(machineOpts, WithStateMachineHook(hook))
	}
	p.machine = NewStateMachine(machineOpts...)

	return p
}

func (p *Provider) mount() {
	p.unsubscribes = append(p.unsubscribes,
		eventbus.Subscribe(p.bus, TopicTokenRefreshed, p.onTokenRefreshed),
		eventbus.Subscribe(p.bus, TopicTokenInvalid, p.onTokenInvalid),
	)
	p.mounted.Store(true)
}

// Unmount stops following refresh events and frees the runtime slot.
// Operations already in flight still update the store and refresher.
func (p *Provider) Unmount() {
	if !p.mounted.CompareAndSwap(true, false) {
		return
	}
	for _, unsubscribe := range p.unsubscribes {
		unsubscribe()
	}
	p.unsubscribes = nil
	p.runtime.release(p)
}

// Mounted reports whether the provider still follows refresh events.
func (p *Provider) Mounted() bool {
	return p.mounted.Load()
}

// Status returns the current lifecycle status.
func (p *Provider) Status() Status {
	return p.machine.Current()
}

// Session returns a copy of the current session, nil when anonymous.
func (p *Provider) Session() *State {
	return p.store.Snapshot()
}

// Subscribe calls fn after every session replacement.
func (p *Provider) Subscribe(fn func(*State)) (unsubscribe func()) {
	return p.store.Subscribe(fn)
}

// OnStatusChange calls fn after every status transition.
func (p *Provider) OnStatusChange(fn func(StatusChange)) (unsubscribe func()) {
	return eventbus.Subscribe(p.bus, TopicStatusChanged, fn)
}

// Boot attempts a silent refresh and settles the status: authenticated when a
// token was obtained, anonymous otherwise. A failed boot refresh is not an
// error.
func (p *Provider) Boot(ctx context.Context) Status {
	claims, ok := p.refresher.Refresh(ctx, SuppressEvents())
	if ok {
		p.apply(ctx, claims, "boot")
	} else {
		p.clear(ctx, "boot")
	}

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventBoot,
		UserID:    userIDOf(claims),
		Metadata:  map[string]any{"authenticated": ok},
	})

	return p.Status()
}

// Login calls the login action. On success the session is replaced and the
// status becomes authenticated. On failure nothing changes and the result
// carries the server message or DefaultFailureMessage.
func (p *Provider) Login(ctx context.Context, username, password string) Result {
	res := p.actions.Login(ctx, username, password)
	if !res.Success || res.Claims == nil {
		failure := Failed(res.Message)
		p.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata: map[string]any{
				"username": username,
				"message":  failure.Message,
			},
		})
		return failure
	}

	p.apply(ctx, res.Claims, "login")
	p.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    res.Claims.Subject(),
	})

	return Succeeded(res.Message)
}

// Register forwards to the register action. It never changes the session, a
// registered user still has to log in.
func (p *Provider) Register(ctx context.Context, username, password, email string) Result {
	res := p.actions.Register(ctx, username, password, email)
	if !res.Success {
		res = Failed(res.Message)
	}

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventRegister,
		Metadata: map[string]any{
			"username": username,
			"success":  res.Success,
		},
	})

	return res
}

// Logout calls the logout action. On success the session is cleared, the
// refresher expiry reset and the status becomes anonymous.
func (p *Provider) Logout(ctx context.Context) Result {
	userID, _ := p.store.UserID()

	res := p.actions.Logout(ctx)
	if !res.Success {
		failure := Failed(res.Message)
		p.record(ctx, ActivityEvent{
			EventType: ActivityEventLogoutFailure,
			UserID:    userID,
			Metadata:  map[string]any{"message": failure.Message},
		})
		return failure
	}

	p.clear(ctx, "logout")
	p.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    userID,
	})

	return res
}

func (p *Provider) onTokenRefreshed(claims *Claims) {
	ctx := context.Background()
	if claims == nil {
		p.clear(ctx, "refresh failed")
		return
	}

	p.apply(ctx, claims, "refresh")
	p.record(ctx, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		UserID:    claims.Subject(),
	})
}

func (p *Provider) onTokenInvalid(struct{}) {
	p.logger.Info("session token could not be refreshed, session cleared")
	p.record(context.Background(), ActivityEvent{
		EventType: ActivityEventTokenInvalid,
	})
}

// apply runs refresher, store and status updates as one step.
func (p *Provider) apply(ctx context.Context, claims *Claims, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refresher.UpdateExpireDate(claims.ExpiresAt())
	p.store.UpdateToken(claims)
	p.transition(ctx, claims.Subject(), StatusAuthenticated, reason)
}

func (p *Provider) clear(ctx context.Context, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, _ := p.store.UserID()
	p.refresher.UpdateExpireDate(time.Time{})
	p.store.UpdateToken(nil)
	p.transition(ctx, userID, StatusAnonymous, reason)
}

func (p *Provider) transition(ctx context.Context, userID string, target Status, reason string) {
	from, changed, err := p.machine.Transition(ctx, userID, target, TransitionMetadata{Reason: reason})
	if err != nil {
		p.logger.Warn("session status transition rejected", "error", err)
		return
	}
	if changed {
		eventbus.Emit(p.bus, TopicStatusChanged, StatusChange{From: from, To: target})
	}
}

func (p *Provider) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}
	if err := normalizeActivitySink(p.sink).Record(ctx, event); err != nil {
		p.logger.Warn("session activity sink error", "error", err)
	}
}

func userIDOf(claims *Claims) string {
	if claims == nil {
		return ""
	}
	return claims.Subject()
}
