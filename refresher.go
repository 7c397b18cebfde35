package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-session/eventbus"
	"golang.org/x/sync/singleflight"
)

// SafetyBuffer is subtracted from the token expiry before a token is treated
// as usable, so requests are not started with a token that expires in flight.
const SafetyBuffer = time.Minute

// DefaultRefreshTimeout bounds a single refresh call. The call is detached
// from the caller's context, so this is the only deadline it gets.
const DefaultRefreshTimeout = 30 * time.Second

const refreshFlightKey = "refresh"

// Refresher owns the expiry used to decide whether a silent refresh is needed
// before an authenticated request, and broadcasts refresh outcomes.
type Refresher struct {
	actions   Actions
	bus       *eventbus.Bus
	logger    Logger
	now       Clock
	buffer    time.Duration
	timeout   time.Duration
	coalesce  bool
	flight    singleflight.Group
	expiresAt atomic.Int64 // unix millis, 0 means expired
}

// RefresherOption customizes a Refresher.
type RefresherOption func(*Refresher)

// WithRefresherClock injects a clock (useful for tests).
func WithRefresherClock(now Clock) RefresherOption {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRefresherLogger overrides the logger.
func WithRefresherLogger(logger Logger) RefresherOption {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRefresherSafetyBuffer overrides SafetyBuffer. Negative values are ignored.
func WithRefresherSafetyBuffer(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d >= 0 {
			r.buffer = d
		}
	}
}

// WithRefresherTimeout bounds each refresh call. Zero or negative values
// disable the bound.
func WithRefresherTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		r.timeout = d
	}
}

// WithRefresherCoalescing toggles sharing one in-flight refresh between
// concurrent callers. It is on by default; when off every caller performs its
// own refresh and the last response to arrive wins.
func WithRefresherCoalescing(enabled bool) RefresherOption {
	return func(r *Refresher) {
		r.coalesce = enabled
	}
}

// NewRefresher returns a refresher with an expired token.
func NewRefresher(actions Actions, bus *eventbus.Bus, opts ...RefresherOption) *Refresher {
	if bus == nil {
		bus = eventbus.New()
	}
	r := &Refresher{
		actions:  actions,
		bus:      bus,
		logger:   defLogger{},
		now:      time.Now,
		buffer:   SafetyBuffer,
		timeout:  DefaultRefreshTimeout,
		coalesce: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// UpdateExpireDate replaces the tracked expiry. The zero time marks the token
// as expired.
func (r *Refresher) UpdateExpireDate(expiresAt time.Time) {
	if expiresAt.IsZero() {
		r.expiresAt.Store(0)
		return
	}
	r.expiresAt.Store(expiresAt.UnixMilli())
}

// ExpiresAt returns the tracked expiry, the zero time when expired.
func (r *Refresher) ExpiresAt() time.Time {
	ms := r.expiresAt.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// IsTokenValid reports now < expiry - buffer.
func (r *Refresher) IsTokenValid() bool {
	return r.now().UnixMilli() < r.expiresAt.Load()-r.buffer.Milliseconds()
}

// ValidateOption customizes a single ValidateToken or Refresh call.
type ValidateOption func(*validateOptions)

type validateOptions struct {
	suppressEvents bool
}

// SuppressEvents skips TopicTokenRefreshed and TopicTokenInvalid for the call.
func SuppressEvents() ValidateOption {
	return func(o *validateOptions) {
		o.suppressEvents = true
	}
}

// ValidateToken returns true right away while the token is valid. Otherwise it
// performs a silent refresh and reports whether a new token was obtained.
func (r *Refresher) ValidateToken(ctx context.Context, opts ...ValidateOption) bool {
	if r.IsTokenValid() {
		return true
	}
	_, ok := r.Refresh(ctx, opts...)
	return ok
}

// Refresh performs a silent refresh regardless of the current expiry. On
// success the expiry is updated and TopicTokenRefreshed carries the claims. On
// failure the expiry is reset and TopicTokenRefreshed(nil) is followed by
// TopicTokenInvalid. Failures are never returned as errors.
//
// With coalescing enabled, concurrent calls share one network call and the
// events are published once, following the options of the call that started
// it.
//
// The refresh runs detached from ctx: cancelling ctx only stops this caller
// from waiting, and it gets false back. The refresh still completes and its
// outcome is applied and published for everyone else.
func (r *Refresher) Refresh(ctx context.Context, opts ...ValidateOption) (*Claims, bool) {
	options := &validateOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if err := ctx.Err(); err != nil {
		r.logger.Debug("refresh skipped, caller context done", "error", err)
		return nil, false
	}

	detached := context.WithoutCancel(ctx)

	var results <-chan singleflight.Result
	if r.coalesce {
		results = r.flight.DoChan(refreshFlightKey, func() (any, error) {
			return r.refresh(detached, options), nil
		})
	} else {
		ch := make(chan singleflight.Result, 1)
		go func() {
			ch <- singleflight.Result{Val: r.refresh(detached, options)}
		}()
		results = ch
	}

	select {
	case res := <-results:
		claims, _ := res.Val.(*Claims)
		return claims, claims != nil
	case <-ctx.Done():
		r.logger.Debug("caller stopped waiting for refresh", "error", ctx.Err())
		return nil, false
	}
}

func (r *Refresher) refresh(ctx context.Context, options *validateOptions) *Claims {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	claims := r.callRefresh(ctx)

	if claims == nil {
		r.UpdateExpireDate(time.Time{})
		if !options.suppressEvents {
			eventbus.Emit(r.bus, TopicTokenRefreshed, nil)
			eventbus.Emit(r.bus, TopicTokenInvalid, struct{}{})
		}
		return nil
	}

	r.UpdateExpireDate(claims.ExpiresAt())
	if !options.suppressEvents {
		eventbus.Emit(r.bus, TopicTokenRefreshed, claims)
	}
	return claims
}

func (r *Refresher) callRefresh(ctx context.Context) (claims *Claims) {
	if r.actions == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("refresh action panicked", "panic", rec)
			claims = nil
		}
	}()

	claims, err := r.actions.Refresh(ctx)
	if err != nil {
		r.logger.Debug("silent refresh failed", "error", err)
		return nil
	}
	return claims
}

// KeepAlive calls ValidateToken every interval until ctx is done, keeping the
// session fresh while nothing else issues authenticated requests.
func (r *Refresher) KeepAlive(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = r.buffer / 2
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !r.ValidateToken(ctx) {
				r.logger.Debug("keep alive could not refresh the session token")
			}
		}
	}
}
