package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"

	"github.com/Conte777/tgviewer/pkg/httputil"
)

// Router registers Telegram account HTTP routes
type Router struct {
	handler *Handler
	auth    httputil.AuthMiddleware
	logger  zerolog.Logger
}

// NewRouter creates a new Telegram account router
func NewRouter(handler *Handler, auth httputil.AuthMiddleware, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		auth:    auth,
		logger:  logger,
	}
}

// RegisterRoutes registers Telegram routes; all of them require a bearer token
func (r *Router) RegisterRoutes(rt *router.Router) {
	api := httputil.NewMiddlewareGroup(rt.Group("/api/telegram")).
		Use(httputil.Middleware(r.auth))

	api.POST("/connect", r.handler.Connect)
	api.POST("/verify", r.handler.Verify)
	api.GET("/chats", r.handler.Chats)
	api.GET("/messages/{chat_id}", r.handler.Messages)
	api.POST("/disconnect", r.handler.Disconnect)
	api.GET("/status", r.handler.Status)

	r.logger.Info().Msg("telegram routes registered")
}
