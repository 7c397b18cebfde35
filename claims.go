package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the typed, immutable record decoded from a session token.
type Claims struct {
	subject   string
	name      string
	role      string
	expiresAt time.Time
	issuedAt  time.Time
	raw       string
}

// NewClaims builds claims from already decoded values. raw may be empty when
// no encoded token is available.
func NewClaims(subject, name, role string, expiresAt time.Time, raw string) *Claims {
	return &Claims{
		subject:   subject,
		name:      name,
		role:      role,
		expiresAt: expiresAt,
		raw:       raw,
	}
}

// Subject returns the user id (sub)
func (c *Claims) Subject() string { return c.subject }

// Name returns the display name (unique_name)
func (c *Claims) Name() string { return c.name }

// Role returns the raw role claim
func (c *Claims) Role() string { return c.role }

// RoleMask returns the role mapped through ParseRoleMask
func (c *Claims) RoleMask() RoleMask { return ParseRoleMask(c.role) }

// ExpiresAt returns the token expiration (exp)
func (c *Claims) ExpiresAt() time.Time { return c.expiresAt }

// IssuedAt returns the issue time (iat), zero when absent
func (c *Claims) IssuedAt() time.Time { return c.issuedAt }

// Raw returns the encoded token the claims were decoded from
func (c *Claims) Raw() string { return c.raw }

type tokenClaims struct {
	jwt.RegisteredClaims
	UniqueName string `json:"unique_name,omitempty"`
	Role       string `json:"role,omitempty"`
}

type claimsSchema struct {
	Subject   string `json:"sub"`
	Name      string `json:"unique_name"`
	ExpiresAt int64  `json:"exp"`
}

func (s claimsSchema) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Subject, validation.Required),
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.ExpiresAt, validation.Required, validation.Min(int64(1))),
	)
}

// DecodeClaims decodes the payload of raw without verifying its signature.
// The client does not hold the signing key; the server verifies tokens on
// every request. Malformed tokens and tokens missing sub, unique_name or exp
// return ErrClaimsInvalid.
func DecodeClaims(raw string) (*Claims, error) {
	if raw == "" {
		return nil, enrich(ErrClaimsInvalid, nil, map[string]any{"reason": "empty token"})
	}

	parsed := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, parsed); err != nil {
		return nil, enrich(ErrClaimsInvalid, err, map[string]any{"reason": "malformed token"})
	}

	schema := claimsSchema{
		Subject: parsed.Subject,
		Name:    parsed.UniqueName,
	}
	if parsed.ExpiresAt != nil {
		schema.ExpiresAt = parsed.ExpiresAt.Unix()
	}

	if err := schema.Validate(); err != nil {
		return nil, enrich(ErrClaimsInvalid, err, map[string]any{"reason": err.Error()})
	}

	claims := &Claims{
		subject:   parsed.Subject,
		name:      parsed.UniqueName,
		role:      parsed.Role,
		expiresAt: parsed.ExpiresAt.Time,
		raw:       raw,
	}
	if parsed.IssuedAt != nil {
		claims.issuedAt = parsed.IssuedAt.Time
	}

	return claims, nil
}
