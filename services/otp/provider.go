package otp

import (
	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/audit"
	"github.com/clubops/admingate/services/identity"
	"github.com/clubops/admingate/services/logging"
	"github.com/clubops/admingate/services/mail"
	"github.com/clubops/admingate/services/sessions"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideOTPService(cfg *config.Config, db *gorm.DB, identitySvc *identity.Service, mailSvc *mail.Service, sessionSvc *sessions.Service, auditor *audit.Recorder, logger *logging.Service) *Service {
	return NewService(&cfg.OTP, db, identitySvc, mailSvc, sessionSvc, auditor, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideOTPService),
)
