package health

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/tgviewer/config"
	healthhttp "github.com/Conte777/tgviewer/internal/domain/health/delivery/http"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/repository/memory"
	"github.com/Conte777/tgviewer/internal/infrastructure/http/server"
)

// Module provides service and health endpoints for fx DI
var Module = fx.Module("health",
	fx.Provide(NewHandlerFx),
	fx.Provide(healthhttp.NewRouter),
	fx.Invoke(RegisterRoutes),
)

// NewHandlerFx creates the health handler for fx DI
func NewHandlerFx(
	serviceCfg *config.ServiceConfig,
	db *gorm.DB,
	factory deps.ClientFactory,
	pending *memory.PendingStore,
	logger zerolog.Logger,
) (*healthhttp.Handler, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	return healthhttp.NewHandler(serviceCfg.Name, serviceCfg.Version, sqlDB, factory, pending, logger), nil
}

// RegisterRoutes registers service routes on the server
func RegisterRoutes(server *server.Server, router *healthhttp.Router) {
	router.RegisterRoutes(server.Router)
}
