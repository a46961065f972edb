package infrastructure

import (
	"go.uber.org/fx"

	"github.com/Conte777/tgviewer/internal/infrastructure/database"
	httpfx "github.com/Conte777/tgviewer/internal/infrastructure/http"
	"github.com/Conte777/tgviewer/internal/infrastructure/kafka"
	"github.com/Conte777/tgviewer/internal/infrastructure/logger"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
	"github.com/Conte777/tgviewer/internal/infrastructure/telegram"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	database.Module,
	metrics.Module,
	telegram.Module, // Must be after metrics (factory records remote calls)
	kafka.Module,
	httpfx.Module,
)
