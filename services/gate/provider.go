package gate

import (
	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/logging"
	"go.uber.org/fx"
)

func ProvideGateService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	return NewService(&cfg.Gate, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideGateService),
)
