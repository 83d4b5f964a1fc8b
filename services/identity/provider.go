package identity

import (
	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/logging"
	"go.uber.org/fx"
)

func ProvideIdentityService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	return NewService(&cfg.Identity, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideIdentityService),
)
