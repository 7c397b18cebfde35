package client

import (
	"context"
	"net/http"

	session "github.com/goliatone/go-session"
)

// TokenValidator makes sure a usable token exists, refreshing when needed.
// *session.Refresher implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, opts ...session.ValidateOption) bool
}

// TokenSource returns the current bearer token. *session.Store implements it.
type TokenSource interface {
	Token() (string, bool)
}

// BearerTransport attaches the session token to outgoing requests. It is
// meant for code that builds requests outside any reactive subscription.
//
// When no valid session can be obtained the request is sent without an
// Authorization header and the server decides.
type BearerTransport struct {
	Base      http.RoundTripper
	Validator TokenValidator
	Source    TokenSource
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	ctx := req.Context()
	if bearerSkipped(ctx) || t.Source == nil {
		return base.RoundTrip(req)
	}

	if t.Validator != nil && !t.Validator.ValidateToken(ctx) {
		return base.RoundTrip(req)
	}

	token, ok := t.Source.Token()
	if !ok {
		return base.RoundTrip(req)
	}

	out := req.Clone(ctx)
	out.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(out)
}
