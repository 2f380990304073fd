package authguard

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the login and logout endpoints. Logout runs
// behind the strict guard so the token being revoked has already been
// verified.
func RegisterAuthRoutes[T any](app router.Router[T], routeGuard *RouteGuard, opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.
		Post(controller.Routes.Logout, routeGuard.Protected()(controller.LogOut)).
		SetName("sign-out.post")
}

type AuthControllerRoutes struct {
	Login  string
	Logout string
}

type AuthController struct {
	Logger       Logger
	Verifier     CredentialVerifier
	Tokens       TokenService
	Guard        *Guard
	Sink         ActivitySink
	Routes       *AuthControllerRoutes
	ErrorHandler func(c router.Context, err error) error
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger overrides the default logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerVerifier sets the credential verifier backing login.
func WithControllerVerifier(verifier CredentialVerifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Verifier = verifier
		return c
	}
}

// WithControllerTokens sets the token service used to mint sessions.
func WithControllerTokens(tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

// WithControllerGuard sets the guard used to revoke tokens on logout.
func WithControllerGuard(guard *Guard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

// WithControllerSink configures an ActivitySink for login events.
func WithControllerSink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sink = normalizeActivitySink(sink)
		return c
	}
}

// WithControllerRoutes overrides the default endpoint paths.
func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Sink:   noopActivitySink{},
		Routes: &AuthControllerRoutes{
			Login:  "/login",
			Logout: "/logout",
		},
	}

	c.ErrorHandler = c.jsonErrHandler

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Verifier == nil {
		panic("Missing CredentialVerifier in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing Guard in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			validation.Length(1, 200),
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse login payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload").
			WithCode(goerrors.CodeBadRequest))
	}

	user, err := a.Verifier.VerifyCredentials(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		a.Logger.Info("login rejected", "identifier", payload.Identifier)
		a.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Actor:     ActorRef{Type: "unknown"},
			Metadata: map[string]any{
				"identifier": payload.Identifier,
			},
		})
		return a.ErrorHandler(ctx, err)
	}

	token, expiresAt, err := a.Tokens.Issue(ctx.Context(), user)
	if err != nil {
		a.Logger.Error("token issuance failed", "user_id", user.ID, "error", err)
		return a.ErrorHandler(ctx, err)
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: user.ID, Type: "user"},
		UserID:    user.ID,
	})
	a.record(ctx, ActivityEvent{
		EventType: ActivityEventTokenIssued,
		Actor:     ActorRef{ID: user.ID, Type: "user"},
		UserID:    user.ID,
		Metadata: map[string]any{
			"token_id": TokenID(token),
		},
	})

	return ctx.JSON(router.StatusOK, LoginResponse{
		Token:     token,
		TokenType: DefaultAuthScheme,
		ExpiresAt: expiresAt.Unix(),
	})
}

// LogOut revokes the presented token. The revocation is durable before the
// response goes out: a client that sees success can assume the token is dead.
func (a *AuthController) LogOut(ctx router.Context) error {
	ref, ok := RouterTokenRef(ctx)
	if !ok || ref == nil {
		// Served under the global bypass; there is nothing to revoke.
		return ctx.JSON(router.StatusOK, map[string]any{"success": true})
	}

	if err := a.Guard.Revoke(ctx.Context(), ref); err != nil {
		a.Logger.Error("logout revocation failed", "token_id", ref.ID, "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

func (a *AuthController) record(ctx router.Context, event ActivityEvent) {
	sink := normalizeActivitySink(a.Sink)

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx.Context(), event); err != nil {
		a.Logger.Warn("activity sink record error: %v", err)
	}
}

func (a *AuthController) jsonErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusBadRequest
	}

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
