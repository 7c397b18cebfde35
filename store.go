package session

import (
	"sync"
	"time"

	"github.com/goliatone/go-session/eventbus"
)

// Store is the single authoritative holder of session state. Code outside
// the reactive flow (request builders, background jobs) reads it
// synchronously; reactive consumers use Subscribe.
//
// Only the Provider writes to the store.
type Store struct {
	mu    sync.RWMutex
	state *State
	bus   *eventbus.Bus
	now   Clock
}

// NewStore returns an empty store publishing changes on bus.
func NewStore(bus *eventbus.Bus, now Clock) *Store {
	if bus == nil {
		bus = eventbus.New()
	}
	if now == nil {
		now = time.Now
	}
	return &Store{bus: bus, now: now}
}

// UpdateToken replaces the session with the state derived from claims, or
// clears it when claims is nil. Subscribers are notified after the swap.
// It does not touch the Refresher.
func (s *Store) UpdateToken(claims *Claims) {
	s.replace(StateFromClaims(claims))
}

func (s *Store) replace(state *State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	var published *State
	if state != nil {
		cp := *state
		published = &cp
	}
	eventbus.Emit(s.bus, TopicSessionChanged, published)
}

// Snapshot returns a copy of the current state, nil when logged out.
func (s *Store) Snapshot() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	cp := *s.state
	return &cp
}

// Subscribe calls fn with the new state after every replacement.
func (s *Store) Subscribe(fn func(*State)) (unsubscribe func()) {
	return eventbus.Subscribe(s.bus, TopicSessionChanged, fn)
}

// UserName returns the display name, ok is false with no session.
func (s *Store) UserName() (string, bool) {
	st := s.current()
	if st == nil {
		return "", false
	}
	return st.UserName, true
}

// UserID returns the user id, ok is false with no session.
func (s *Store) UserID() (string, bool) {
	st := s.current()
	if st == nil {
		return "", false
	}
	return st.UserID, true
}

// UserRole returns the role mask, ok is false with no session.
func (s *Store) UserRole() (RoleMask, bool) {
	st := s.current()
	if st == nil {
		return RoleGuest, false
	}
	return st.RoleMask, true
}

// Token returns the encoded bearer token, ok is false with no session or when
// the session has no encoded token.
func (s *Store) Token() (string, bool) {
	st := s.current()
	if st == nil || st.Token == "" {
		return "", false
	}
	return st.Token, true
}

// IsAuthorized is false with no session, for guests, and once the raw token
// expiry has passed.
func (s *Store) IsAuthorized() bool {
	return s.current().Authorized(s.now())
}

// IsModerator reports RoleMask >= RoleOperator.
func (s *Store) IsModerator() bool {
	st := s.current()
	return st != nil && st.RoleMask.IsModerator()
}

// IsAdmin reports whether the administrator bit is set.
func (s *Store) IsAdmin() bool {
	st := s.current()
	return st != nil && st.RoleMask.IsAdmin()
}

func (s *Store) current() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
