package handlers

import (
	"net/http"
	"time"

	"github.com/clubops/admingate/services/audit"
	"github.com/labstack/echo/v4"
)

type gateVerifyRequest struct {
	Code string `json:"code"`
}

// GateVerify exchanges the shared deployment secret for a grant cookie.
// Failures answer with one generic message after a fixed artificial
// delay, revealing neither whether the secret format was valid nor how
// close it was.
func (h *Handler) GateVerify(c echo.Context) error {
	var req gateVerifyRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		time.Sleep(h.cfg.Gate.FailureDelay)
		return c.JSON(http.StatusUnauthorized, errorResponse("verification failed"))
	}

	if err := h.gate.VerifySecret(req.Code); err != nil {
		h.auditor.Record(audit.Event{
			Action:    audit.ActionGateAttempt,
			Outcome:   audit.OutcomeUnauthorized,
			IPAddress: c.RealIP(),
		})
		time.Sleep(h.cfg.Gate.FailureDelay)
		return c.JSON(http.StatusUnauthorized, errorResponse("verification failed"))
	}

	token, expiresAt, err := h.gate.IssueGrant(time.Now())
	if err != nil {
		h.auditor.Record(audit.Event{
			Action:    audit.ActionGateAttempt,
			Outcome:   audit.OutcomeInternalError,
			IPAddress: c.RealIP(),
		})
		return c.JSON(http.StatusInternalServerError, errorResponse("something went wrong"))
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Gate.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	h.auditor.Record(audit.Event{
		Action:    audit.ActionGateAttempt,
		Outcome:   audit.OutcomeSuccess,
		IPAddress: c.RealIP(),
	})

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}
