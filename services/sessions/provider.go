package sessions

import (
	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideSessionService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return NewService(&cfg.Session, db, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideSessionService),
)
