package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/clubops/admingate/services/otp"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type verifyEmailRequest struct {
	Email string `json:"email"`
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmail issues a one-time code to a privileged address. The
// response never distinguishes an unknown address from a known one
// beyond the status code mapping required by the console.
func (h *Handler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil || !validEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, errorResponse("invalid request"))
	}

	result, err := h.otp.Issue(req.Email, clientFrom(c))
	if err != nil {
		return h.mapIssueError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"ok":        true,
		"expiresIn": int(result.ExpiresIn.Seconds()),
		"cooldown":  int(result.Cooldown.Seconds()),
	})
}

// VerifyEmailConfirm consumes a submitted code and, on success, writes
// the session cookie pair: the HTTP-only opaque token the gateway
// checks, and a readable marker the console UI branches on.
func (h *Handler) VerifyEmailConfirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil || !validEmail(req.Email) || req.Code == "" {
		return c.JSON(http.StatusBadRequest, errorResponse("invalid request"))
	}

	session, err := h.otp.Verify(req.Email, req.Code, clientFrom(c))
	if err != nil {
		return h.mapVerifyError(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Session.MarkerCookieName,
		Value:    "1",
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) mapIssueError(c echo.Context, err error) error {
	var rateLimited *otp.RateLimitedError
	switch {
	case errors.Is(err, otp.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, errorResponse("not permitted"))
	case errors.As(err, &rateLimited):
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"ok":       false,
			"error":    "a code was sent recently",
			"cooldown": int(rateLimited.Wait.Round(time.Second).Seconds()),
		})
	default:
		h.logger.Error("code issuance failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse("something went wrong"))
	}
}

func (h *Handler) mapVerifyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, otp.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, errorResponse("not permitted"))
	case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrExpired):
		return c.JSON(http.StatusBadRequest, errorResponse("no valid code, request a new one"))
	case errors.Is(err, otp.ErrTooManyAttempts):
		return c.JSON(http.StatusTooManyRequests, errorResponse("too many attempts, request a new code"))
	case errors.Is(err, otp.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, errorResponse("verification failed"))
	default:
		h.logger.Error("code verification failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse("something went wrong"))
	}
}

func clientFrom(c echo.Context) otp.Client {
	return otp.Client{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func validEmail(address string) bool {
	if address == "" {
		return false
	}
	_, err := mail.ParseAddress(address)
	return err == nil
}
