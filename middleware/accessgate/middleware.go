package accessgate

import (
	"net/http"
	"strings"

	"github.com/clubops/admingate/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Config struct {
	Gates       GrantVerifier
	Identities  IdentityResolver
	SessionAuth SessionValidator
	Logger      *logging.Service

	// Touch is fired asynchronously when a verified request passes.
	Touch func(sessionID uint)

	GateCookieName     string
	IdentityCookieName string
	SessionCookieName  string

	GateEntryPath string
	LoginPath     string
	OTPEntryPath  string
	HomePath      string
	DeniedPath    string
	APIPrefix     string
}

const subjectContextKey = "accessgate.subject"

// Subject returns the verified caller identity set by the middleware,
// or "" before StageVerified.
func Subject(c echo.Context) string {
	if subject, ok := c.Get(subjectContextKey).(string); ok {
		return subject
	}
	return ""
}

// Middleware enforces the access state machine on every request. Page
// routes get 302 redirects to the entry page of the first unsatisfied
// stage (or forward, past stages already satisfied); API routes get
// structured errors because their callers cannot follow HTML redirects.
func Middleware(cfg Config) echo.MiddlewareFunc {
	applyDefaults(&cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := DeriveAccessState(credentialsFromRequest(c, cfg), cfg.Gates, cfg.Identities, cfg.SessionAuth)

			if strings.HasPrefix(c.Request().URL.Path, cfg.APIPrefix) {
				return handleAPI(c, cfg, state, next)
			}
			return handlePage(c, cfg, state, next)
		}
	}
}

func credentialsFromRequest(c echo.Context, cfg Config) Credentials {
	return Credentials{
		GateGrant:     cookieValue(c, cfg.GateCookieName),
		IdentityToken: cookieValue(c, cfg.IdentityCookieName),
		SessionToken:  cookieValue(c, cfg.SessionCookieName),
	}
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func handleAPI(c echo.Context, cfg Config, state AccessState, next echo.HandlerFunc) error {
	switch state.Stage {
	case StageVerified:
		forwardVerified(c, cfg, state)
		return next(c)
	case StageDenied:
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	default:
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
}

func handlePage(c echo.Context, cfg Config, state AccessState, next echo.HandlerFunc) error {
	path := c.Request().URL.Path

	switch state.Stage {
	case StageNoGate:
		if path == cfg.GateEntryPath {
			return next(c)
		}
		return c.Redirect(http.StatusFound, cfg.GateEntryPath)

	case StageNoIdentity:
		if path == cfg.LoginPath {
			return next(c)
		}
		// Includes the gate-entry page: that stage is already satisfied,
		// so the caller is moved forward rather than shown the gate form.
		return c.Redirect(http.StatusFound, cfg.LoginPath)

	case StageDenied:
		cfg.Logger.Warn("non-privileged identity denied",
			zap.String("subject", state.Subject),
			zap.String("path", path))
		return c.Redirect(http.StatusFound, cfg.DeniedPath)

	case StageNoSession:
		if path == cfg.LoginPath || path == cfg.OTPEntryPath {
			return next(c)
		}
		return c.Redirect(http.StatusFound, cfg.OTPEntryPath)

	default: // StageVerified
		if path == cfg.GateEntryPath || path == cfg.LoginPath || path == cfg.OTPEntryPath {
			return c.Redirect(http.StatusFound, cfg.HomePath)
		}
		forwardVerified(c, cfg, state)
		return next(c)
	}
}

func forwardVerified(c echo.Context, cfg Config, state AccessState) {
	c.Set(subjectContextKey, state.Subject)
	if cfg.Touch != nil && state.Session != nil {
		// Off the request path; a lost touch costs nothing but freshness.
		go cfg.Touch(state.Session.ID)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.GateCookieName == "" {
		cfg.GateCookieName = "gate-access"
	}
	if cfg.IdentityCookieName == "" {
		cfg.IdentityCookieName = "admin-identity"
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "admin-session"
	}
	if cfg.GateEntryPath == "" {
		cfg.GateEntryPath = "/gate"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.OTPEntryPath == "" {
		cfg.OTPEntryPath = "/verify"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/admin"
	}
	if cfg.DeniedPath == "" {
		cfg.DeniedPath = "/"
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/"
	}
}
