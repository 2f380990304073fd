package authguard

import (
	"github.com/goliatone/go-router"
)

// RequireUser returns middleware that insists a Principal was installed by a
// guard middleware earlier in the chain. It layers on top of Optional to make
// individual routes strict.
func (a *RouteGuard) RequireUser() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			principal, ok := RouterPrincipal(ctx, a.contextKey)
			if !ok || principal == nil {
				return a.ErrorHandler(ctx, ErrAuthenticationRequired)
			}

			return ctx.Next()
		}
	}
}

// RequireRole returns middleware gating a route on a minimum role. Roles are
// hierarchical: an admin passes a moderator gate. The synthetic system
// principal carries the admin role and passes every gate.
func (a *RouteGuard) RequireRole(minRole Role) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			principal, ok := RouterPrincipal(ctx, a.contextKey)
			if !ok || principal == nil {
				return a.ErrorHandler(ctx, ErrAuthenticationRequired)
			}

			if !principalMeetsRole(principal, minRole) {
				a.guard.emit(ctx.Context(), ActivityEvent{
					EventType: ActivityEventRoleForbidden,
					Actor:     ActorRef{ID: principal.ID, Type: "user"},
					UserID:    principal.ID,
					Metadata: map[string]any{
						"required_role": string(minRole),
						"roles":         principal.Roles.Strings(),
					},
				})
				return a.ErrorHandler(ctx, ErrRoleRequired)
			}

			return ctx.Next()
		}
	}
}

func principalMeetsRole(principal *Principal, minRole Role) bool {
	if principal == nil {
		return false
	}

	for role := range principal.Roles {
		if role.IsAtLeast(minRole) {
			return true
		}
	}

	return false
}
