package session

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-session/eventbus"
)

// Runtime is the composition root of the session subsystem. It builds one
// event bus, one Store and one Refresher for the process and hands the same
// instances to every consumer. At most one Provider can be mounted at a time.
type Runtime struct {
	actions   Actions
	bus       *eventbus.Bus
	store     *Store
	refresher *Refresher
	logger    Logger
	now       Clock
	sink      ActivitySink
	hooks     []TransitionHook

	buffer   time.Duration
	timeout  time.Duration
	coalesce bool

	mu      sync.Mutex
	mounted *Provider
}

// Option customizes a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger shared by every component.
func WithLogger(logger Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock injects the clock shared by every component.
func WithClock(now Clock) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// WithActivitySink sets the sink receiving session activity.
func WithActivitySink(sink ActivitySink) Option {
	return func(r *Runtime) {
		r.sink = normalizeActivitySink(sink)
	}
}

// WithEventBus shares an existing bus, for example with other UI components.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(r *Runtime) {
		if bus != nil {
			r.bus = bus
		}
	}
}

// WithSafetyBuffer overrides SafetyBuffer for the refresher.
func WithSafetyBuffer(d time.Duration) Option {
	return func(r *Runtime) {
		if d >= 0 {
			r.buffer = d
		}
	}
}

// WithRefreshTimeout bounds each silent refresh, DefaultRefreshTimeout by
// default. Zero or negative values disable the bound.
func WithRefreshTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		r.timeout = d
	}
}

// WithRefreshCoalescing toggles sharing in-flight refreshes, on by default.
func WithRefreshCoalescing(enabled bool) Option {
	return func(r *Runtime) {
		r.coalesce = enabled
	}
}

// WithTransitionHook adds a hook run after every provider status transition.
func WithTransitionHook(h TransitionHook) Option {
	return func(r *Runtime) {
		if h != nil {
			r.hooks = append(r.hooks, h)
		}
	}
}

// NewRuntime builds the session subsystem around actions.
func NewRuntime(actions Actions, opts ...Option) (*Runtime, error) {
	if actions == nil {
		return nil, ErrMissingActions
	}

	r := &Runtime{
		actions:  actions,
		logger:   defLogger{},
		now:      time.Now,
		sink:     noopActivitySink{},
		buffer:   SafetyBuffer,
		timeout:  DefaultRefreshTimeout,
		coalesce: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.bus == nil {
		r.bus = eventbus.New(eventbus.WithLogger(r.logger))
	}

	r.store = NewStore(r.bus, r.now)
	r.refresher = NewRefresher(actions, r.bus,
		WithRefresherClock(r.now),
		WithRefresherLogger(r.logger),
		WithRefresherSafetyBuffer(r.buffer),
		WithRefresherTimeout(r.timeout),
		WithRefresherCoalescing(r.coalesce),
	)

	return r, nil
}

// Bus returns the shared event bus.
func (r *Runtime) Bus() *eventbus.Bus {
	return r.bus
}

// Store returns the process session store.
func (r *Runtime) Store() *Store {
	return r.store
}

// Refresher returns the process token refresher.
func (r *Runtime) Refresher() *Refresher {
	return r.refresher
}

// Mount creates the provider, subscribes it to refresh events and boots it.
// It returns ErrProviderMounted while another provider is mounted.
func (r *Runtime) Mount(ctx context.Context) (*Provider, error) {
	r.mu.Lock()
	if r.mounted != nil {
		r.mu.Unlock()
		return nil, ErrProviderMounted
	}
	p := newProvider(r)
	p.mount()
	r.mounted = p
	r.mu.Unlock()

	p.Boot(ctx)
	return p, nil
}

// Provider returns the mounted provider, if any.
func (r *Runtime) Provider() (*Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mounted, r.mounted != nil
}

func (r *Runtime) release(p *Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mounted == p {
		r.mounted = nil
	}
}
