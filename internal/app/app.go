package app

import (
	"go.uber.org/fx"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/auth"
	"github.com/Conte777/tgviewer/internal/domain/health"
	"github.com/Conte777/tgviewer/internal/domain/link"
	"github.com/Conte777/tgviewer/internal/infrastructure"
)

// CreateApp creates the fx application options
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),
		infrastructure.Module,
		// Domain modules
		auth.Module, // Provides the bearer middleware used by link routes
		link.Module,
		health.Module,
	)
}
