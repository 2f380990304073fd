package authguard

import (
	"context"
	"time"

	"github.com/goliatone/go-router"
)

var principalCtxKey = &contextKey{"principal"}
var tokenCtxKey = &contextKey{"token"}
var bypassCtxKey = &contextKey{"bypass"}

type contextKey struct {
	name string
}

// TokenRef carries the raw bearer token and its expiry through the request so
// the logout flow can revoke without reparsing.
type TokenRef struct {
	Raw       string
	ID        string
	ExpiresAt time.Time
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}

// WithTokenRef sets the verified token reference in the given context
func WithTokenRef(ctx context.Context, ref *TokenRef) context.Context {
	return context.WithValue(ctx, tokenCtxKey, ref)
}

// TokenRefFromContext extracts the token reference from the context.
func TokenRefFromContext(ctx context.Context) (*TokenRef, bool) {
	raw, ok := ctx.Value(tokenCtxKey).(*TokenRef)
	return raw, ok
}

// WithBypass marks the context as served under the global auth-disable
// toggle.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassCtxKey, true)
}

// IsBypass reports whether the request was served without verifying
// credentials.
func IsBypass(ctx context.Context) bool {
	raw, ok := ctx.Value(bypassCtxKey).(bool)
	return ok && raw
}

// RouterPrincipal extracts the Principal installed by the guard middleware
// from the router context.
func RouterPrincipal(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	principal, ok := raw.(*Principal)
	return principal, ok
}

// RouterTokenRef extracts the token reference installed by the guard
// middleware from the router context.
func RouterTokenRef(ctx router.Context) (*TokenRef, bool) {
	raw := ctx.Locals(tokenLocalsKey)
	if raw == nil {
		return nil, false
	}
	ref, ok := raw.(*TokenRef)
	return ref, ok
}

// HasRole is a convenience check against the principal in a standard context.
func HasRole(ctx context.Context, role Role) bool {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return false
	}
	return principal.HasRole(role)
}

// HasRoleFromRouter is a convenience check against the principal in a router
// context.
func HasRoleFromRouter(ctx router.Context, role Role) bool {
	principal, ok := RouterPrincipal(ctx, "")
	if !ok {
		return false
	}
	return principal.HasRole(role)
}
