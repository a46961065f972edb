package http

import (
	"context"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/infrastructure/http/server"
	"github.com/Conte777/tgviewer/pkg/httputil"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides HTTP server for fx DI
var Module = fx.Module("http",
	fx.Provide(NewServerFx),
)

// NewServerFx creates HTTP server with lifecycle hooks for fx DI
func NewServerFx(
	lc fx.Lifecycle,
	serviceCfg *config.ServiceConfig,
	httpCfg *config.HTTPConfig,
	logger zerolog.Logger,
) *server.Server {
	httpLogger := logger.With().Str("component", "http").Logger()

	srv := server.NewServer(serviceCfg.Name, serviceCfg.Port, httpLogger,
		httputil.Recovery(httpLogger),
		httputil.RequestIDMiddleware(),
		httputil.AccessLog(httpLogger),
		httputil.CORS(httpCfg.AllowedOrigins),
	)

	srv.RegisterMetrics()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}
