package authguard

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GuardClaims is the claim set carried by issued tokens.
//
// Roles intentionally has no omitempty: a well-formed token must carry the
// roles key even when the list is empty, and verification rejects tokens
// where it is absent.
type GuardClaims struct {
	jwt.RegisteredClaims
	UID      string         `json:"uid,omitempty"`
	Email    string         `json:"email,omitempty"`
	Roles    []string       `json:"roles"`
	Metadata map[string]any `json:"metadata,omitempty"` // extension payload
}

// UserID returns the user ID
func (c *GuardClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserEmail returns the email claim.
func (c *GuardClaims) UserEmail() string {
	return c.Email
}

// RoleSet maps the token's role strings into the enumerated capability set,
// dropping unknown values.
func (c *GuardClaims) RoleSet() RoleSet {
	return NormalizeRoles(c.Roles)
}

// Expires returns the expiration time
func (c *GuardClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *GuardClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// WellFormed reports whether the identity claims the guard relies on are all
// present: uid, email, and the roles list (possibly empty). Tokens failing
// this check are rejected before any user lookup.
func (c *GuardClaims) WellFormed() bool {
	if c.UserID() == "" {
		return false
	}
	if c.Email == "" {
		return false
	}
	if c.Roles == nil {
		return false
	}
	return true
}
