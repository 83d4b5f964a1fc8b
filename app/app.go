package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/database"
	"github.com/clubops/admingate/handlers"
	"github.com/clubops/admingate/middleware/ratelimit"
	"github.com/clubops/admingate/server"
	"github.com/clubops/admingate/services/audit"
	"github.com/clubops/admingate/services/gate"
	"github.com/clubops/admingate/services/identity"
	"github.com/clubops/admingate/services/logging"
	"github.com/clubops/admingate/services/mail"
	"github.com/clubops/admingate/services/otp"
	"github.com/clubops/admingate/services/sessions"
	"go.uber.org/fx"
)

// App assembles the access gateway: config, store, services, HTTP
// surface, and lifecycle, wired through fx.
type App struct {
	fx     *fx.App
	logger *logging.Service
}

// New builds the application graph. Pass a nil config to load from the
// environment.
func New(cfg *config.Config, extraOptions ...fx.Option) *App {
	app := &App{}

	options := []fx.Option{
		config.NewProvider(cfg),
		logging.Module,
		fx.Supply(database.WithModels(
			&otp.OneTimeCode{},
			&sessions.SessionRecord{},
			&audit.Event{},
		)),
		database.Module,
		audit.Module,
		mail.Module,
		gate.Module,
		identity.Module,
		sessions.Module,
		otp.Module,
		fx.Provide(ProvideRateLimitStore),
		fx.Provide(handlers.New),
		server.NewProvider(),
		fx.Invoke(RegisterRoutes),
		fx.Invoke(func(logger *logging.Service) {
			app.logger = logger
		}),
		fx.NopLogger,
	}
	options = append(options, extraOptions...)

	app.fx = fx.New(options...)
	return app
}

func ProvideRateLimitStore(cfg *config.Config, lc fx.Lifecycle) *ratelimit.Store {
	store := ratelimit.NewStore(cfg.RateLimit.SweepInterval)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			store.Stop()
			return nil
		},
	})
	return store
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

func (a *App) Run() {
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	a.logger.Info("received shutdown signal, stopping gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}
