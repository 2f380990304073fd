package authguard

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the validity window for issued tokens.
	DefaultTokenTTL = 7 * 24 * time.Hour
	// ClockSkewTolerance is applied to every timestamp comparison during
	// verification.
	ClockSkewTolerance = 30 * time.Second
)

// TokenService signs and verifies guard tokens. It is stateless given a
// resolved secret.
type TokenService interface {
	Issue(ctx context.Context, user *DirectoryUser) (string, time.Time, error)
	SignClaims(claims *GuardClaims) (string, error)
	Verify(tokenString string) (*GuardClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	secrets   SecretProvider
	ttl       time.Duration
	issuer    string
	logger    Logger
	decorator ClaimsDecorator
	now       func() time.Time
}

// TokenServiceOption customizes token service construction.
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenTTL overrides the default 7 day validity window. The TTL also
// bounds the maximum accepted token age during verification.
func WithTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if ttl > 0 {
			ts.ttl = ttl
		}
	}
}

// WithTokenIssuer sets the iss claim on issued tokens and enforces it on
// verification.
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithTokenLogger overrides the default logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenClaimsDecorator configures a ClaimsDecorator for enriching issued
// tokens.
func WithTokenClaimsDecorator(decorator ClaimsDecorator) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.decorator = normalizeClaimsDecorator(decorator)
	}
}

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(secrets SecretProvider, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		secrets:   secrets,
		ttl:       DefaultTokenTTL,
		logger:    defLogger{},
		decorator: noopClaimsDecorator{},
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// Issue builds claims from a persisted user and signs them. Only users with a
// non-empty id can be the subject of a token.
func (ts *TokenServiceImpl) Issue(ctx context.Context, user *DirectoryUser) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, goerrors.New("token subject requires a persisted user", goerrors.CategoryBadInput)
	}

	now := ts.now()
	expiresAt := now.Add(ts.ttl)

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := &GuardClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:   user.ID,
		Email: user.Email,
		Roles: roles,
	}

	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(ts.decorator)
	if err := decorator.Decorate(ctx, user, claims); err != nil {
		ts.logger.Error("claims decorator failed", "error", err)
		return "", time.Time{}, err
	}

	if err := snapshot.validate(claims); err != nil {
		ts.logger.Error("claims decorator mutated immutable claims", "error", err)
		return "", time.Time{}, err
	}

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// SignClaims signs arbitrary guard claims using the resolved secret.
func (ts *TokenServiceImpl) SignClaims(claims *GuardClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	secret, err := ts.secrets.Secret()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Verify parses and validates a token string, returning structured claims.
// The signing algorithm is pinned to HS256. Time claims are validated against
// the service clock with the skew tolerance applied inclusively: a token is
// live through exp + ClockSkewTolerance, and its age is bounded by the
// service TTL independently of the exp claim.
func (ts *TokenServiceImpl) Verify(tokenString string) (*GuardClaims, error) {
	secret, err := ts.secrets.Secret()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &GuardClaims{}, func(t *jwt.Token) (any, error) {
		alg, _ := t.Header["alg"].(string)
		if alg != jwt.SigningMethodHS256.Alg() {
			ts.logger.Error("verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(goerrors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*GuardClaims)
	if !ok {
		ts.logger.Error("verify could not decode claims")
		return nil, ErrTokenMalformed
	}

	if ts.issuer != "" && claims.Issuer != ts.issuer {
		return nil, ErrTokenMalformed
	}

	now := ts.now()

	expires := claims.Expires()
	if expires.IsZero() {
		return nil, ErrTokenMalformed
	}
	if now.After(expires.Add(ClockSkewTolerance)) {
		return nil, ErrTokenExpired
	}

	// exp alone is not trusted: a correctly signed token older than the
	// service TTL is rejected even if its exp claim says otherwise.
	issued := claims.Issued()
	if issued.IsZero() {
		return nil, ErrTokenMalformed
	}
	if now.After(issued.Add(ts.ttl).Add(ClockSkewTolerance)) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
