package authguard

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultContextKey is the locals key the middleware stores the
	// Principal under.
	DefaultContextKey = "user"
	// DefaultLookupTimeout bounds each settings and directory read.
	DefaultLookupTimeout = 5 * time.Second

	tokenLocalsKey = "authguard:token"
)

// Result is the outcome of a successful guard evaluation. Exactly one of the
// normal and bypass shapes applies: under bypass Token is nil and Principal
// is the synthetic system identity.
type Result struct {
	Principal *Principal
	Token     *TokenRef
	Bypass    bool
}

// Guard evaluates bearer credentials against the full authentication
// pipeline: the service-wide toggle, the revocation store, token
// verification, and a fresh read of the backing user.
type Guard struct {
	tokens       TokenService
	revocations  RevocationStore
	directory    UserDirectory
	settings     SettingsReader
	sink         ActivitySink
	logger       Logger
	systemDomain string
	lookupWait   time.Duration
	now          func() time.Time
}

// GuardOption customizes guard construction.
type GuardOption func(*Guard)

// WithGuardLogger overrides the default logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithActivitySink configures an ActivitySink for emitting guard events.
func WithActivitySink(sink ActivitySink) GuardOption {
	return func(g *Guard) {
		g.sink = normalizeActivitySink(sink)
	}
}

// WithSystemDomain scopes the synthetic principal served under the global
// bypass.
func WithSystemDomain(domain string) GuardOption {
	return func(g *Guard) {
		g.systemDomain = domain
	}
}

// WithLookupTimeout bounds the settings read and the user lookup performed on
// each request.
func WithLookupTimeout(timeout time.Duration) GuardOption {
	return func(g *Guard) {
		if timeout > 0 {
			g.lookupWait = timeout
		}
	}
}

// WithGuardClock injects a custom clock (useful for tests).
func WithGuardClock(clock func() time.Time) GuardOption {
	return func(g *Guard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// NewGuard wires the collaborating services into a request guard.
func NewGuard(tokens TokenService, revocations RevocationStore, directory UserDirectory, settings SettingsReader, opts ...GuardOption) *Guard {
	g := &Guard{
		tokens:      tokens,
		revocations: revocations,
		directory:   directory,
		settings:    settings,
		sink:        noopActivitySink{},
		logger:      defLogger{},
		lookupWait:  DefaultLookupTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Authenticate runs the strict pipeline. The order is load-bearing: the
// service toggle is consulted before anything else, revocation before
// cryptographic verification, and the backing user is re-read on every
// request so deactivation and email changes take effect immediately.
func (g *Guard) Authenticate(ctx context.Context, rawToken string) (*Result, error) {
	if bypass, ok := g.checkBypass(ctx); ok {
		return bypass, nil
	}

	return g.authenticate(ctx, rawToken)
}

// authenticate is the post-bypass pipeline shared by the strict and optional
// entry points.
func (g *Guard) authenticate(ctx context.Context, rawToken string) (*Result, error) {
	if rawToken == "" {
		g.emitDenied(ctx, "", ErrTokenMissing)
		return nil, ErrTokenMissing
	}

	tokenID := TokenID(rawToken)

	revoked, err := g.isRevoked(ctx, tokenID)
	if err != nil {
		g.logger.Error("revocation lookup failed", "token_id", tokenID, "error", err)
		return nil, err
	}
	if revoked {
		g.emitDenied(ctx, "", ErrTokenRevoked)
		return nil, ErrTokenRevoked
	}

	claims, err := g.tokens.Verify(rawToken)
	if err != nil {
		g.emitDenied(ctx, "", err)
		return nil, err
	}

	if !claims.WellFormed() {
		g.emitDenied(ctx, claims.UserID(), ErrTokenMalformed)
		return nil, ErrTokenMalformed
	}

	user, err := g.findUser(ctx, claims.UserID())
	if err != nil {
		g.emitDenied(ctx, claims.UserID(), err)
		return nil, err
	}

	// A deactivated account wins over every later check: the caller learns
	// the account is disabled even when the token is also stale.
	if !user.Active {
		g.emitDenied(ctx, claims.UserID(), ErrAccountDisabled)
		return nil, ErrAccountDisabled
	}

	// A token minted before an email change carries a stale identity and is
	// rejected the same way a forged token would be.
	if user.Email != claims.UserEmail() {
		g.emitDenied(ctx, claims.UserID(), ErrTokenMalformed)
		return nil, ErrTokenMalformed
	}

	roles := claims.RoleSet()
	if len(roles) == 0 {
		roles = NewRoleSet(RoleUser)
	}

	return &Result{
		Principal: &Principal{
			ID:    user.ID,
			Email: user.Email,
			Roles: roles,
		},
		Token: &TokenRef{
			Raw:       rawToken,
			ID:        tokenID,
			ExpiresAt: claims.Expires(),
		},
	}, nil
}

// OptionalAuthenticate runs the same pipeline but never rejects: any failure
// downgrades the request to anonymous. The returned Result has a nil
// Principal when no valid credential was presented.
func (g *Guard) OptionalAuthenticate(ctx context.Context, rawToken string) *Result {
	if bypass, ok := g.checkBypass(ctx); ok {
		return bypass
	}

	if rawToken == "" {
		return &Result{}
	}

	result, err := g.authenticate(ctx, rawToken)
	if err != nil {
		g.logger.Debug("optional auth downgraded to anonymous", "error", err)
		return &Result{}
	}

	return result
}

// Revoke invalidates the given token. The entry is persisted before this
// returns, so a caller can respond knowing the token is already dead.
func (g *Guard) Revoke(ctx context.Context, ref *TokenRef) error {
	if ref == nil || ref.ID == "" {
		return nil
	}

	if g.revocations == nil {
		return goerrors.New("no revocation store configured", goerrors.CategoryOperation)
	}

	if err := g.revocations.Revoke(ctx, ref.ID, ref.ExpiresAt); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return err
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist revocation")
	}

	g.emit(ctx, ActivityEvent{
		EventType: ActivityEventTokenRevoked,
		Metadata: map[string]any{
			"token_id": ref.ID,
		},
	})

	return nil
}

// checkBypass consults the service-wide toggle. A read failure keeps
// authentication required; the bypass has to be an affirmative answer.
func (g *Guard) checkBypass(ctx context.Context) (*Result, bool) {
	if g.settings == nil {
		return nil, false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.lookupWait)
	defer cancel()

	enabled, err := g.settings.AuthenticationEnabled(lookupCtx)
	if err != nil {
		g.logger.Warn("settings read failed, keeping authentication required", "error", err)
		return nil, false
	}

	if enabled {
		return nil, false
	}

	principal := SystemPrincipal(g.systemDomain)
	g.emit(ctx, ActivityEvent{
		EventType: ActivityEventBypassServed,
		Actor:     ActorRef{Type: "system"},
		Metadata: map[string]any{
			"email": principal.Email,
		},
	})

	return &Result{
		Principal: principal,
		Bypass:    true,
	}, true
}

func (g *Guard) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if g.revocations == nil {
		return false, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.lookupWait)
	defer cancel()

	revoked, err := g.revocations.IsRevoked(lookupCtx, tokenID)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return false, err
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check revocation")
	}

	return revoked, nil
}

func (g *Guard) findUser(ctx context.Context, id string) (*DirectoryUser, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, g.lookupWait)
	defer cancel()

	user, err := g.directory.FindByID(lookupCtx, id)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup failed")
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (g *Guard) emitDenied(ctx context.Context, userID string, cause error) {
	metadata := map[string]any{}
	var richErr *goerrors.Error
	if goerrors.As(cause, &richErr) {
		metadata["text_code"] = richErr.TextCode
	} else if cause != nil {
		metadata["error"] = cause.Error()
	}

	g.emit(ctx, ActivityEvent{
		EventType: ActivityEventAccessDenied,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
		Metadata:  metadata,
	})
}

func (g *Guard) emit(ctx context.Context, event ActivityEvent) {
	sink := normalizeActivitySink(g.sink)

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = g.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		g.logger.Warn("activity sink record error: %v", err)
	}
}
