package authguard

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds guard options
type Config interface {
	GetSigningSecret() string
	GetSigningMethod() string
	GetTokenTTL() int
	GetIssuer() string
	GetAuthScheme() string
	GetContextKey() string
	GetSystemDomain() string
}

// DirectoryUser is the shape of a user record as seen by the guard. The
// owning user-management subsystem is external; the guard only reads it.
type DirectoryUser struct {
	ID     string
	Email  string
	Active bool
	Roles  []string
}

// UserDirectory looks up users by id. Implementations must re-read the
// backing store on every call so deactivations take effect on the next
// request.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*DirectoryUser, error)
}

// CredentialVerifier authenticates an identifier/password pair. It backs the
// login flow that feeds token issuance.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, password string) (*DirectoryUser, error)
}

// SettingsReader exposes the persisted service-wide authentication toggle.
// Readers must honor the staleness bound they were configured with; the
// default is a fresh read per call.
type SettingsReader interface {
	AuthenticationEnabled(ctx context.Context) (bool, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GUARD "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] GUARD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GUARD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GUARD "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
