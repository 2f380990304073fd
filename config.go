package authguard

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Stack bundles the services built from a Config so applications can wire the
// whole pipeline in one call.
type Stack struct {
	Tokens TokenService
	Guard  *Guard
	Routes *RouteGuard
}

// NewStack builds the token service, guard, and route middleware from a
// Config. Construction fails fast on configuration the pipeline cannot serve:
// an empty signing secret or a signing method other than HS256.
func NewStack(cfg Config, revocations RevocationStore, directory UserDirectory, settings SettingsReader, opts ...GuardOption) (*Stack, error) {
	if method := cfg.GetSigningMethod(); method != "" && method != jwt.SigningMethodHS256.Alg() {
		return nil, goerrors.New("unsupported signing method: "+method, goerrors.CategoryBadInput)
	}

	secrets, err := NewStaticSecretProvider(cfg.GetSigningSecret())
	if err != nil {
		return nil, err
	}

	tokenOpts := []TokenServiceOption{
		WithTokenIssuer(cfg.GetIssuer()),
	}
	if ttl := cfg.GetTokenTTL(); ttl > 0 {
		tokenOpts = append(tokenOpts, WithTokenTTL(time.Duration(ttl)*time.Hour))
	}

	tokens := NewTokenService(secrets, tokenOpts...)

	guardOpts := []GuardOption{
		WithSystemDomain(cfg.GetSystemDomain()),
	}
	guardOpts = append(guardOpts, opts...)

	guard := NewGuard(tokens, revocations, directory, settings, guardOpts...)

	routes := NewRouteGuard(guard,
		WithRouteContextKey(cfg.GetContextKey()),
		WithRouteAuthScheme(cfg.GetAuthScheme()),
	)

	return &Stack{
		Tokens: tokens,
		Guard:  guard,
		Routes: routes,
	}, nil
}

// SimpleConfig is a literal Config for programmatic setup.
type SimpleConfig struct {
	SigningSecret string
	SigningMethod string
	TokenTTL      int
	Issuer        string
	AuthScheme    string
	ContextKey    string
	SystemDomain  string
}

func (c SimpleConfig) GetSigningSecret() string { return c.SigningSecret }
func (c SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c SimpleConfig) GetTokenTTL() int         { return c.TokenTTL }
func (c SimpleConfig) GetIssuer() string        { return c.Issuer }
func (c SimpleConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c SimpleConfig) GetContextKey() string    { return c.ContextKey }
func (c SimpleConfig) GetSystemDomain() string  { return c.SystemDomain }
