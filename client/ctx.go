package client

import "context"

var skipBearerCtxKey = &contextKey{"skip-bearer"}

type contextKey struct {
	name string
}

// WithoutBearer marks requests made with ctx so BearerTransport neither
// validates the session nor attaches a token. The auth calls themselves use it.
func WithoutBearer(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipBearerCtxKey, true)
}

func bearerSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipBearerCtxKey).(bool)
	return skip
}
