package handlers

import (
	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/audit"
	"github.com/clubops/admingate/services/gate"
	"github.com/clubops/admingate/services/logging"
	"github.com/clubops/admingate/services/otp"
	"github.com/clubops/admingate/services/sessions"
)

// Handler owns the HTTP surface of the access gateway: the gate secret
// exchange, code issuance and confirmation, and the session endpoints
// behind the gateway middleware.
type Handler struct {
	cfg      *config.Config
	gate     *gate.Service
	otp      *otp.Service
	sessions *sessions.Service
	auditor  *audit.Recorder
	logger   *logging.Service
}

func New(cfg *config.Config, gateSvc *gate.Service, otpSvc *otp.Service, sessionSvc *sessions.Service, auditor *audit.Recorder, logger *logging.Service) *Handler {
	return &Handler{
		cfg:      cfg,
		gate:     gateSvc,
		otp:      otpSvc,
		sessions: sessionSvc,
		auditor:  auditor,
		logger:   logger,
	}
}

func errorResponse(message string) map[string]any {
	return map[string]any{"ok": false, "error": message}
}
