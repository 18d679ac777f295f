package auth

import (
	"context"
	"fmt"
	"net/http"
)

// DevAuthenticator hands every request a fixed identity. Local use only.
type DevAuthenticator struct {
	identity Identity
}

func NewDevAuthenticator(cfg Config) (*DevAuthenticator, error) {
	if cfg.Mode != ModeDev {
		return nil, fmt.Errorf("dev authenticator requires AUTH_MODE=dev (got %q)", cfg.Mode)
	}
	return &DevAuthenticator{
		identity: Identity{
			Subject: cfg.DevSubject,
			Email:   cfg.DevEmail,
			Roles:   cfg.DevRoles,
		},
	}, nil
}

func (a *DevAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	return a.identity, nil
}

// DisabledAuthenticator treats every caller as an anonymous admin.
type DisabledAuthenticator struct{}

func (DisabledAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	return Identity{Subject: "anonymous", Roles: []string{RoleAdmin}}, nil
}

// FromConfig picks the authenticator for the configured mode. The returned
// handlers are nil unless the login flow is configured.
func FromConfig(ctx context.Context, cfg Config) (Authenticator, *LoginHandlers, error) {
	switch cfg.Mode {
	case ModeOIDC:
		authenticator, provider, err := NewOIDCAuthenticator(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.ValidateForLogin() != nil {
			return authenticator, nil, nil
		}
		handlers, err := NewLoginHandlers(cfg, provider, authenticator)
		if err != nil {
			return nil, nil, err
		}
		return authenticator, handlers, nil
	case ModeDev:
		authenticator, err := NewDevAuthenticator(cfg)
		return authenticator, nil, err
	case ModeDisabled:
		return DisabledAuthenticator{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported auth mode: %q", cfg.Mode)
	}
}
