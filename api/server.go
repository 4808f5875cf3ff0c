package api

import (
	"github.com/brpaz/echozap"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tidepool-org/intake/attachments"
	"github.com/tidepool-org/intake/config"
	"github.com/tidepool-org/intake/errors"
	"go.uber.org/zap"
)

const (
	readyRoute      = "/ready"
	addPatientRoute = "/api/add-patient"
	publicRoute     = "/public"
)

func NewServer(handler *Handler, healthCheck *HealthCheck, cfg *config.Config, attachmentsConfig *attachments.Config, logger *zap.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Skip request logging for the readiness probe
	skipper := RouteSkipper([]string{readyRoute})

	e.Use(middleware.Recover())
	e.Use(SkipMiddleware(skipper, echozap.ZapLogger(logger)))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CorsAllowedOrigins,
	}))
	e.Use(middleware.BodyLimit(cfg.JsonBodyLimit))

	e.HTTPErrorHandler = errors.CustomHTTPErrorHandler

	e.GET(readyRoute, healthCheck.Ready)
	e.Static(publicRoute, attachmentsConfig.PublicDir)
	RegisterHandlers(e, handler)

	return e, nil
}

func RegisterHandlers(e *echo.Echo, handler *Handler) {
	e.POST(addPatientRoute, handler.AddPatient)
}
