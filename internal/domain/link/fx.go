package link

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/tgviewer/config"
	linkhttp "github.com/Conte777/tgviewer/internal/domain/link/delivery/http"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/repository/memory"
	"github.com/Conte777/tgviewer/internal/domain/link/repository/postgres"
	"github.com/Conte777/tgviewer/internal/domain/link/usecase/business"
	"github.com/Conte777/tgviewer/internal/infrastructure/http/server"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
	"github.com/Conte777/tgviewer/pkg/httputil"
)

// Module provides Telegram account linking components for fx DI
var Module = fx.Module("link",
	fx.Provide(NewPendingStoreFx),
	fx.Provide(NewRepositoryFx),
	fx.Provide(NewLinkServiceFx),
	fx.Provide(NewViewServiceFx),
	fx.Provide(NewHandlerFx),
	fx.Provide(NewRouterFx),
	fx.Invoke(RegisterRoutes),
)

// NewPendingStoreFx creates the pending link table; its sweeper follows the app lifecycle
func NewPendingStoreFx(lc fx.Lifecycle, cfg *config.LinkConfig, m *metrics.Metrics, logger zerolog.Logger) *memory.PendingStore {
	store := memory.NewPendingStore(cfg.PendingTTL, cfg.SweepInterval, cfg.MaxPending, m, logger)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if n := store.Close(ctx); n > 0 {
				logger.Info().Int("closed", n).Msg("pending links closed")
			}
			return nil
		},
	})

	return store
}

// NewRepositoryFx creates the credential repository for fx DI
func NewRepositoryFx(db *gorm.DB) deps.CredentialRepository {
	return postgres.NewRepository(db)
}

// NewLinkServiceFx creates the linking state machine for fx DI
func NewLinkServiceFx(
	factory deps.ClientFactory,
	pending *memory.PendingStore,
	repo deps.CredentialRepository,
	events deps.EventPublisher,
	cfg *config.LinkConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) deps.LinkService {
	return business.NewLinker(factory, pending, repo, events, cfg, m, logger)
}

// NewViewServiceFx creates the linked account query facade for fx DI
func NewViewServiceFx(
	factory deps.ClientFactory,
	repo deps.CredentialRepository,
	events deps.EventPublisher,
	cfg *config.LinkConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) deps.ViewService {
	return business.NewViewer(factory, repo, events, cfg, m, logger)
}

// NewHandlerFx creates the Telegram HTTP handler for fx DI
func NewHandlerFx(linker deps.LinkService, viewer deps.ViewService, logger zerolog.Logger) *linkhttp.Handler {
	return linkhttp.NewHandler(linker, viewer, logger)
}

// NewRouterFx creates the Telegram router for fx DI
func NewRouterFx(handler *linkhttp.Handler, auth httputil.AuthMiddleware, logger zerolog.Logger) *linkhttp.Router {
	return linkhttp.NewRouter(handler, auth, logger)
}

// RegisterRoutes registers Telegram routes on the server
func RegisterRoutes(server *server.Server, router *linkhttp.Router) {
	router.RegisterRoutes(server.Router)
}
