package authguard

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// DefaultAuthScheme prefixes bearer credentials in the Authorization header.
const DefaultAuthScheme = "Bearer"

// RouteGuard exposes the Guard as router middleware. Strict routes reject
// with structured errors; optional routes always continue, possibly
// anonymous.
type RouteGuard struct {
	guard      *Guard
	contextKey string
	authScheme string
	cookieName string
	logger     Logger

	// ErrorHandler renders guard denials. Replace it to customize the
	// response shape.
	ErrorHandler func(c router.Context, err error) error
}

// RouteGuardOption customizes the middleware wrapper.
type RouteGuardOption func(*RouteGuard)

// WithRouteContextKey overrides the locals key the Principal is stored under.
func WithRouteContextKey(key string) RouteGuardOption {
	return func(a *RouteGuard) {
		if key != "" {
			a.contextKey = key
		}
	}
}

// WithRouteAuthScheme overrides the Authorization header scheme.
func WithRouteAuthScheme(scheme string) RouteGuardOption {
	return func(a *RouteGuard) {
		if scheme != "" {
			a.authScheme = scheme
		}
	}
}

// WithRouteCookieName enables a cookie fallback for clients that cannot set
// headers.
func WithRouteCookieName(name string) RouteGuardOption {
	return func(a *RouteGuard) {
		a.cookieName = name
	}
}

// WithRouteLogger overrides the default logger.
func WithRouteLogger(logger Logger) RouteGuardOption {
	return func(a *RouteGuard) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewRouteGuard wraps a Guard for use in router middleware chains.
func NewRouteGuard(guard *Guard, opts ...RouteGuardOption) *RouteGuard {
	a := &RouteGuard{
		guard:      guard,
		contextKey: DefaultContextKey,
		authScheme: DefaultAuthScheme,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	a.ErrorHandler = a.defaultErrHandler

	return a
}

// Protected returns middleware that rejects requests failing the strict
// pipeline.
func (a *RouteGuard) Protected() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := a.extractToken(ctx)

			result, err := a.guard.Authenticate(ctx.Context(), raw)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			a.install(ctx, result)
			return ctx.Next()
		}
	}
}

// Optional returns middleware that attaches a Principal when a valid
// credential is present and continues anonymously otherwise. It never
// rejects.
func (a *RouteGuard) Optional() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := a.extractToken(ctx)

			result := a.guard.OptionalAuthenticate(ctx.Context(), raw)
			if result != nil && result.Principal != nil {
				a.install(ctx, result)
			}

			return ctx.Next()
		}
	}
}

func (a *RouteGuard) install(ctx router.Context, result *Result) {
	ctx.Locals(a.contextKey, result.Principal)

	reqCtx := WithPrincipal(ctx.Context(), result.Principal)

	if result.Token != nil {
		ctx.Locals(tokenLocalsKey, result.Token)
		reqCtx = WithTokenRef(reqCtx, result.Token)
	}

	if result.Bypass {
		reqCtx = WithBypass(reqCtx)
	}

	ctx.SetContext(reqCtx)
}

func (a *RouteGuard) extractToken(ctx router.Context) string {
	header := ctx.GetString(router.HeaderAuthorization, "")
	if header != "" {
		scheme := strings.TrimSpace(a.authScheme)
		l := len(scheme)
		if l > 0 && len(header) > l+1 && strings.EqualFold(header[:l], scheme) {
			return strings.TrimSpace(header[l:])
		}
	}

	if a.cookieName != "" {
		if raw := ctx.Cookies(a.cookieName); raw != "" {
			return raw
		}
	}

	return ""
}

// defaultErrHandler renders a denial as JSON without leaking verification
// detail: clients get the catalog message and text code, nothing else.
func (a *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusUnauthorized
	}

	a.logger.Info(
		"request denied",
		"text_code", richErr.TextCode,
		"status", status,
		"path", c.OriginalURL(),
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
