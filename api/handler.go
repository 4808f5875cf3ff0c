package api

import (
	"github.com/tidepool-org/intake/config"
	"github.com/tidepool-org/intake/intake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler struct {
	config *config.Config
	intake intake.Service
	logger *zap.SugaredLogger
}

type Params struct {
	fx.In

	Config *config.Config
	Intake intake.Service
	Logger *zap.SugaredLogger
}

func NewHandler(p Params) *Handler {
	return &Handler{
		config: p.Config,
		intake: p.Intake,
		logger: p.Logger,
	}
}
