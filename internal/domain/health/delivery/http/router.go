package http

import (
	"github.com/fasthttp/router"
)

// Router registers service endpoints
type Router struct {
	handler *Handler
}

// NewRouter creates a new health router
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// RegisterRoutes registers / and /health
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/", r.handler.Root)
	rt.GET("/health", r.handler.Health)
}
