package authguard_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authguard "github.com/goliatone/go-authguard"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func testClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestTokenService(t *testing.T, opts ...authguard.TokenServiceOption) *authguard.TokenServiceImpl {
	t.Helper()

	secrets, err := authguard.NewStaticSecretProvider(testSecret)
	require.NoError(t, err)

	return authguard.NewTokenService(secrets, opts...)
}

func testUser() *authguard.DirectoryUser {
	return &authguard.DirectoryUser{
		ID:     "user-123",
		Email:  "user@example.test",
		Active: true,
		Roles:  []string{"user"},
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	service := newTestTokenService(t,
		authguard.WithTokenClock(testClock(now)),
		authguard.WithTokenIssuer("test-issuer"),
	)

	t.Run("round trip preserves identity claims", func(t *testing.T) {
		token, expiresAt, err := service.Issue(context.Background(), testUser())
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, now.Add(authguard.DefaultTokenTTL).Unix(), expiresAt.Unix())

		claims, err := service.Verify(token)
		require.NoError(t, err)

		assert.Equal(t, "user-123", claims.UserID())
		assert.Equal(t, "user@example.test", claims.UserEmail())
		assert.Equal(t, []string{"user"}, claims.Roles)
		assert.Equal(t, "test-issuer", claims.Issuer)
		assert.NotEmpty(t, claims.ID)
		assert.True(t, claims.WellFormed())
	})

	t.Run("roles key survives an empty role list", func(t *testing.T) {
		user := testUser()
		user.Roles = nil

		token, _, err := service.Issue(context.Background(), user)
		require.NoError(t, err)

		claims, err := service.Verify(token)
		require.NoError(t, err)

		assert.NotNil(t, claims.Roles)
		assert.Empty(t, claims.Roles)
		assert.True(t, claims.WellFormed())
	})

	t.Run("rejects subject without id", func(t *testing.T) {
		_, _, err := service.Issue(context.Background(), &authguard.DirectoryUser{Email: "a@b.c"})
		assert.Error(t, err)

		_, _, err = service.Issue(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("unique token id per issuance", func(t *testing.T) {
		first, _, err := service.Issue(context.Background(), testUser())
		require.NoError(t, err)
		second, _, err := service.Issue(context.Background(), testUser())
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.NotEqual(t, authguard.TokenID(first), authguard.TokenID(second))
	})
}

func TestTokenService_Verify_Rejections(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	service := newTestTokenService(t, authguard.WithTokenClock(testClock(now)))

	signRaw := func(t *testing.T, method jwt.SigningMethod, claims *authguard.GuardClaims, secret string) string {
		t.Helper()
		token := jwt.NewWithClaims(method, claims)
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	baseClaims := func(issued, expires time.Time) *authguard.GuardClaims {
		return &authguard.GuardClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				IssuedAt:  jwt.NewNumericDate(issued),
				ExpiresAt: jwt.NewNumericDate(expires),
			},
			UID:   "user-123",
			Email: "user@example.test",
			Roles: []string{"user"},
		}
	}

	assertTextCode := func(t *testing.T, err error, code string) {
		t.Helper()
		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, code, richErr.TextCode)
	}

	t.Run("rejects non HS256 algorithm", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodHS384, baseClaims(now, now.Add(time.Hour)), testSecret)

		_, err := service.Verify(raw)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenMalformed)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodHS256, baseClaims(now, now.Add(time.Hour)), "other-secret")

		_, err := service.Verify(raw)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenMalformed)
	})

	t.Run("rejects tampered token", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodHS256, baseClaims(now, now.Add(time.Hour)), testSecret)
		tampered := raw[:len(raw)-4] + "AAAA"

		_, err := service.Verify(tampered)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenMalformed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := service.Verify("not-a-token")
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenMalformed)
	})

	t.Run("rejects missing issued at", func(t *testing.T) {
		claims := baseClaims(now, now.Add(time.Hour))
		claims.IssuedAt = nil
		raw := signRaw(t, jwt.SigningMethodHS256, claims, testSecret)

		_, err := service.Verify(raw)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenMalformed)
	})

	t.Run("rejects missing expiry", func(t *testing.T) {
		claims := baseClaims(now, now.Add(time.Hour))
		claims.ExpiresAt = nil
		raw := signRaw(t, jwt.SigningMethodHS256, claims, testSecret)

		_, err := service.Verify(raw)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenMalformed)
	})

	t.Run("expiry exactly at the skew boundary is accepted", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodHS256, baseClaims(now.Add(-time.Hour), now.Add(-authguard.ClockSkewTolerance)), testSecret)

		_, err := service.Verify(raw)
		assert.NoError(t, err)
	})

	t.Run("expiry past skew tolerance is rejected", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodHS256, baseClaims(now.Add(-time.Hour), now.Add(-authguard.ClockSkewTolerance-time.Second)), testSecret)

		_, err := service.Verify(raw)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenExpired)
		assert.True(t, authguard.IsTokenExpiredError(err))
	})

	t.Run("forged far future expiry is bounded by max age", func(t *testing.T) {
		issued := now.Add(-authguard.DefaultTokenTTL - time.Minute)
		raw := signRaw(t, jwt.SigningMethodHS256, baseClaims(issued, now.Add(365*24*time.Hour)), testSecret)

		_, err := service.Verify(raw)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenExpired)
	})

	t.Run("issuer mismatch is rejected when issuer enforced", func(t *testing.T) {
		strict := newTestTokenService(t,
			authguard.WithTokenClock(testClock(now)),
			authguard.WithTokenIssuer("expected-issuer"),
		)

		claims := baseClaims(now, now.Add(time.Hour))
		claims.Issuer = "someone-else"
		raw := signRaw(t, jwt.SigningMethodHS256, claims, testSecret)

		_, err := strict.Verify(raw)
		require.Error(t, err)
		assertTextCode(t, err, authguard.TextCodeTokenMalformed)
	})
}

func TestTokenService_ClaimsDecorator(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("decorator may extend metadata", func(t *testing.T) {
		service := newTestTokenService(t,
			authguard.WithTokenClock(testClock(now)),
			authguard.WithTokenClaimsDecorator(authguard.ClaimsDecoratorFunc(
				func(_ context.Context, _ *authguard.DirectoryUser, claims *authguard.GuardClaims) error {
					claims.Metadata = map[string]any{"tenant": "acme"}
					return nil
				},
			)),
		)

		token, _, err := service.Issue(context.Background(), testUser())
		require.NoError(t, err)

		claims, err := service.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "acme", claims.Metadata["tenant"])
	})

	t.Run("decorator cannot touch identity claims", func(t *testing.T) {
		service := newTestTokenService(t,
			authguard.WithTokenClock(testClock(now)),
			authguard.WithTokenClaimsDecorator(authguard.ClaimsDecoratorFunc(
				func(_ context.Context, _ *authguard.DirectoryUser, claims *authguard.GuardClaims) error {
					claims.Email = "attacker@example.test"
					return nil
				},
			)),
		)

		_, _, err := service.Issue(context.Background(), testUser())
		require.Error(t, err)

		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, authguard.TextCodeImmutableClaim, richErr.TextCode)
	})

	t.Run("decorator cannot extend lifetime", func(t *testing.T) {
		service := newTestTokenService(t,
			authguard.WithTokenClock(testClock(now)),
			authguard.WithTokenClaimsDecorator(authguard.ClaimsDecoratorFunc(
				func(_ context.Context, _ *authguard.DirectoryUser, claims *authguard.GuardClaims) error {
					claims.ExpiresAt = jwt.NewNumericDate(now.Add(90 * 24 * time.Hour))
					return nil
				},
			)),
		)

		_, _, err := service.Issue(context.Background(), testUser())
		require.Error(t, err)
	})
}
