package app

import (
	"net/http"

	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/handlers"
	"github.com/clubops/admingate/middleware/accessgate"
	"github.com/clubops/admingate/middleware/ratelimit"
	"github.com/clubops/admingate/server"
	"github.com/clubops/admingate/services/gate"
	"github.com/clubops/admingate/services/identity"
	"github.com/clubops/admingate/services/logging"
	"github.com/clubops/admingate/services/sessions"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes binds the gateway's HTTP surface. The entry endpoints
// (gate, code issuance, code confirmation) sit in front of the state
// machine; everything under /admin and /api/admin sits behind it.
func RegisterRoutes(srv *server.Server, cfg *config.Config, h *handlers.Handler, gateSvc *gate.Service, identitySvc *identity.Service, sessionSvc *sessions.Service, limiter *ratelimit.Store, logger *logging.Service) {
	limit := func(routeClass string, rate int) echo.MiddlewareFunc {
		return ratelimit.Middleware(&ratelimit.Config{
			Store:      limiter,
			Rate:       rate,
			Period:     cfg.RateLimit.Period,
			RouteClass: routeClass,
		})
	}

	if cfg.RateLimit.Enabled {
		srv.Post("/gate/verify", h.GateVerify, limit("gate", cfg.RateLimit.GateRate))
		srv.Post("/admin/verify-email", h.VerifyEmail, limit("otp-issue", cfg.RateLimit.IssueRate))
		srv.Post("/admin/verify-email/confirm", h.VerifyEmailConfirm, limit("otp-verify", cfg.RateLimit.VerifyRate))
	} else {
		srv.Post("/gate/verify", h.GateVerify)
		srv.Post("/admin/verify-email", h.VerifyEmail)
		srv.Post("/admin/verify-email/confirm", h.VerifyEmailConfirm)
	}

	guard := accessgate.Middleware(accessgate.Config{
		Gates:              gateSvc,
		Identities:         identitySvc,
		SessionAuth:        sessionSvc,
		Logger:             logger,
		Touch:              sessionSvc.Touch,
		GateCookieName:     cfg.Gate.CookieName,
		IdentityCookieName: cfg.Identity.CookieName,
		SessionCookieName:  cfg.Session.CookieName,
	})

	admin := srv.Group("/admin/console", guard)
	admin.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"ok": true, "subject": accessgate.Subject(c)})
	})

	api := srv.Group("/api/admin", guard)
	api.GET("/sessions", h.ListSessions)
	api.POST("/logout", h.Logout)
}
