package session

import (
	"fmt"
	"time"
)

// State is the session data derived from a token. A nil *State means no
// session; a State is never partially updated, every change replaces it.
type State struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Role      string    `json:"role"`
	RoleMask  RoleMask  `json:"role_mask"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"-"`
}

// StateFromClaims derives session state from claims. It returns nil for nil
// claims.
func StateFromClaims(claims *Claims) *State {
	if claims == nil {
		return nil
	}
	return &State{
		UserID:    claims.Subject(),
		UserName:  claims.Name(),
		Role:      claims.Role(),
		RoleMask:  claims.RoleMask(),
		ExpiresAt: claims.ExpiresAt(),
		Token:     claims.Raw(),
	}
}

// ExpiresAtMillis returns the expiry in milliseconds since the epoch.
func (s *State) ExpiresAtMillis() int64 {
	if s == nil || s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.UnixMilli()
}

// Authorized reports whether s is a non guest session that has not passed its
// raw expiry at now. There is no safety buffer here, see Refresher.IsTokenValid.
func (s *State) Authorized(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.RoleMask.IsGuest() {
		return false
	}
	return !now.After(s.ExpiresAt)
}

func (s State) String() string {
	return fmt.Sprintf(
		"user=%s name=%s role=%s mask=%d exp=%s",
		s.UserID,
		s.UserName,
		s.Role,
		s.RoleMask,
		s.ExpiresAt.Format(time.RFC1123),
	)
}
