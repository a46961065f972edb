package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"

	"github.com/Conte777/tgviewer/pkg/httputil"
)

// Router registers user account HTTP routes
type Router struct {
	handler *Handler
	auth    httputil.AuthMiddleware
	logger  zerolog.Logger
}

// NewRouter creates a new auth router
func NewRouter(handler *Handler, auth httputil.AuthMiddleware, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		auth:    auth,
		logger:  logger,
	}
}

// RegisterRoutes registers auth routes; only /me needs a token
func (r *Router) RegisterRoutes(rt *router.Router) {
	group := rt.Group("/api/auth")
	group.POST("/register", r.handler.Register)
	group.POST("/login", r.handler.Login)
	group.POST("/logout", r.handler.Logout)

	protected := httputil.NewMiddlewareGroup(group).Use(httputil.Middleware(r.auth))
	protected.GET("/me", r.handler.Me)

	r.logger.Info().Msg("auth routes registered")
}
