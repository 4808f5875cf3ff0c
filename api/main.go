package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fatih/structs"
	"github.com/labstack/echo/v4"
	"github.com/tidepool-org/intake/attachments"
	"github.com/tidepool-org/intake/config"
	"github.com/tidepool-org/intake/intake"
	"github.com/tidepool-org/intake/logger"
	"github.com/tidepool-org/intake/sheets"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func Start(e *echo.Echo, cfg *config.Config, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.ServerAddress()); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorw("server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

func SetReady(healthCheck *HealthCheck, materializer attachments.Materializer, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The materializer creates the upload directory in its own start hook,
			// which runs first because hooks are executed in topological order
			healthCheck.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			healthCheck.SetReady(false)
			return nil
		},
	})
}

type ConfigParams struct {
	fx.In

	Server      *config.Config
	Sheets      *sheets.Config
	Attachments *attachments.Config
	Intake      *intake.Config
}

func LogConfig(p ConfigParams, logger *zap.SugaredLogger) {
	logger.Infow("starting intake service",
		"server", structs.Map(p.Server),
		"sheets", structs.Map(p.Sheets),
		"attachments", structs.Map(p.Attachments),
		"intake", structs.Map(p.Intake),
	)
}

// Dependencies returns the options which build the service dependency graph
func Dependencies() []fx.Option {
	return []fx.Option{
		fx.Provide(
			logger.NewProductionLogger,
			logger.Suggar,
			config.NewConfig,
			sheets.NewConfig,
			attachments.NewConfig,
			intake.NewConfig,
			intake.NewSchema,
			intake.NewNumberGenerator,
			sheets.NewGatewayFromConfig,
			attachments.NewMaterializer,
			intake.NewService,
			NewHealthCheck,
			NewHandler,
			NewServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
	}
}

func MainLoop() {
	opts := append(Dependencies(),
		fx.Invoke(LogConfig),
		fx.Invoke(SetReady),
		fx.Invoke(Start),
	)
	fx.New(opts...).Run()
}
