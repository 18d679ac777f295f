package auth

import (
	"context"
	"net/http"
)

// Identity is the authenticated caller as seen by handlers.
type Identity struct {
	Subject string
	Email   string
	Roles   []string
}

// Authenticator resolves the caller's identity from a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

type ctxKeyIdentity struct{}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}
