package auth

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/tgviewer/config"
	authhttp "github.com/Conte777/tgviewer/internal/domain/auth/delivery/http"
	"github.com/Conte777/tgviewer/internal/domain/auth/deps"
	"github.com/Conte777/tgviewer/internal/domain/auth/repository/postgres"
	"github.com/Conte777/tgviewer/internal/domain/auth/token"
	"github.com/Conte777/tgviewer/internal/domain/auth/usecase/business"
	"github.com/Conte777/tgviewer/internal/infrastructure/http/server"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
	"github.com/Conte777/tgviewer/pkg/httputil"
)

// Module provides user account components and the bearer middleware for fx DI
var Module = fx.Module("auth",
	fx.Provide(NewRepositoryFx),
	fx.Provide(NewTokenManagerFx),
	fx.Provide(NewAuthServiceFx),
	fx.Provide(NewAuthMiddlewareFx),
	fx.Provide(NewHandlerFx),
	fx.Provide(NewRouterFx),
	fx.Invoke(RegisterRoutes),
)

// NewRepositoryFx creates the user repository for fx DI
func NewRepositoryFx(db *gorm.DB) deps.UserRepository {
	return postgres.NewRepository(db)
}

// NewTokenManagerFx creates the JWT manager for fx DI
func NewTokenManagerFx(cfg *config.AuthConfig, logger zerolog.Logger) deps.TokenManager {
	if cfg.UsesDefaultSecret() {
		logger.Warn().Msg("JWT_SECRET is not set, using the default secret")
	}
	return token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
}

// NewAuthServiceFx creates the auth service for fx DI
func NewAuthServiceFx(users deps.UserRepository, tokens deps.TokenManager, m *metrics.Metrics, logger zerolog.Logger) deps.AuthService {
	return business.NewService(users, tokens, m, logger)
}

// NewAuthMiddlewareFx creates the bearer middleware shared by protected routes
func NewAuthMiddlewareFx(tokens deps.TokenManager, logger zerolog.Logger) httputil.AuthMiddleware {
	return authhttp.NewAuthMiddleware(tokens, logger.With().Str("component", "auth_middleware").Logger())
}

// NewHandlerFx creates the auth HTTP handler for fx DI
func NewHandlerFx(service deps.AuthService, logger zerolog.Logger) *authhttp.Handler {
	return authhttp.NewHandler(service, logger)
}

// NewRouterFx creates the auth router for fx DI
func NewRouterFx(handler *authhttp.Handler, auth httputil.AuthMiddleware, logger zerolog.Logger) *authhttp.Router {
	return authhttp.NewRouter(handler, auth, logger)
}

// RegisterRoutes registers auth routes on the server
func RegisterRoutes(server *server.Server, router *authhttp.Router) {
	router.RegisterRoutes(server.Router)
}
