package authguard

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced alongside structured errors so clients can branch
// without string matching response messages.
const (
	TextCodeTokenMissing      = "TOKEN_MISSING"
	TextCodeTokenRevoked      = "TOKEN_REVOKED"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeUserNotFound      = "USER_NOT_FOUND"
	TextCodeAccountDisabled   = "ACCOUNT_DISABLED"
	TextCodeAuthRequired      = "AUTH_REQUIRED"
	TextCodeRoleRequired      = "ROLE_REQUIRED"
	TextCodeSecretUnavailable = "SIGNING_SECRET_UNAVAILABLE"
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeImmutableClaim    = "IMMUTABLE_CLAIM_MUTATION"
)

// ErrTokenMissing is returned when a strict route receives no bearer token.
var ErrTokenMissing = goerrors.New("missing token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRevoked is returned for tokens invalidated before their expiry.
var ErrTokenRevoked = goerrors.New("token revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a token is past its expiry or older than
// the maximum issuance age.
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures, unexpected algorithms, claim shape
// violations, and stale identity claims. The message is deliberately generic.
var ErrTokenMalformed = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserNotFound is returned when the token's backing user vanished.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountDisabled is returned for deactivated accounts.
var ErrAccountDisabled = goerrors.New("account disabled", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrAuthenticationRequired is returned by RequireUser when no Principal was
// installed by the guard.
var ErrAuthenticationRequired = goerrors.New("authentication required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAuthRequired).
	WithCode(goerrors.CodeForbidden)

// ErrRoleRequired is returned by RequireRole when the Principal lacks the
// gated role.
var ErrRoleRequired = goerrors.New("role required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeRoleRequired).
	WithCode(goerrors.CodeForbidden)

// ErrSecretUnavailable means the signing secret could not be resolved. Both
// issuance and verification fail closed on it.
var ErrSecretUnavailable = goerrors.New("signing secret unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeSecretUnavailable).
	WithCode(goerrors.CodeInternal)

// ErrInvalidCredentials is returned by the login flow for unknown identifiers
// and password mismatches alike.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrImmutableClaimMutation means a claims decorator touched an identity or
// lifetime claim. The token is not issued.
var ErrImmutableClaimMutation = goerrors.New("immutable claim mutated", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(goerrors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
