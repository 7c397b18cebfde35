package devserver

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role claims issued by the server.
const (
	RoleUser          = "User"
	RoleOperator      = "Operator"
	RoleAdministrator = "Administrator"
)

// Account is a storefront user.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Username      string    `bun:"username,notnull,unique" json:"username"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	Role          string    `bun:"role,notnull" json:"role"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// RefreshSession is an issued refresh credential. The ID is the cookie value.
type RefreshSession struct {
	bun.BaseModel `bun:"table:refresh_sessions,alias:rs"`
	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	AccountID     uuid.UUID `bun:"account_id,notnull,type:uuid"`
	ExpiresAt     time.Time `bun:"expires_at,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// Expired reports whether the session is unusable at now.
func (s *RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
