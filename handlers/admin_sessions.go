package handlers

import (
	"net/http"
	"time"

	"github.com/clubops/admingate/middleware/accessgate"
	"github.com/clubops/admingate/services/audit"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListSessions returns the caller's active sessions for the console's
// security view. It is only reachable at StageVerified.
func (h *Handler) ListSessions(c echo.Context) error {
	subject := accessgate.Subject(c)
	if subject == "" {
		return c.JSON(http.StatusUnauthorized, errorResponse("authentication required"))
	}

	infos, err := h.sessions.ListActive(subject)
	if err != nil {
		h.logger.Error("failed to list sessions", zap.Error(err), zap.String("subject", subject))
		return c.JSON(http.StatusInternalServerError, errorResponse("something went wrong"))
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true, "sessions": infos})
}

// Logout revokes every session of the caller everywhere and clears the
// cookie pair. Revocation stamps rows; there is no logout state to keep,
// the next request simply derives StageNoSession.
func (h *Handler) Logout(c echo.Context) error {
	subject := accessgate.Subject(c)
	if subject == "" {
		return c.JSON(http.StatusUnauthorized, errorResponse("authentication required"))
	}

	if _, err := h.sessions.RevokeAll(subject); err != nil {
		h.logger.Error("failed to revoke sessions", zap.Error(err), zap.String("subject", subject))
		return c.JSON(http.StatusInternalServerError, errorResponse("something went wrong"))
	}

	h.auditor.Record(audit.Event{
		Subject:   subject,
		Action:    audit.ActionSessionWipe,
		Outcome:   audit.OutcomeSuccess,
		IPAddress: c.RealIP(),
	})

	expired := time.Unix(0, 0)
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  expired,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Session.MarkerCookieName,
		Value:    "",
		Path:     "/",
		Expires:  expired,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}
