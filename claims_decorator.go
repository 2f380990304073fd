package authguard

import "context"

// ClaimsDecorator can mutate allowed claim extensions before a token is signed.
// Implementations may only touch extension fields (e.g. Metadata) and must
// leave identity and lifetime claims untouched so the guard semantics stay
// stable.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, user *DirectoryUser, claims *GuardClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, user *DirectoryUser, claims *GuardClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, user *DirectoryUser, claims *GuardClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, user, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, *DirectoryUser, *GuardClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
