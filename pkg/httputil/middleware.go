package httputil

import (
	"runtime/debug"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Middleware is a function that wraps a handler
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// AuthMiddleware resolves the bearer token into a user id stored on the request
type AuthMiddleware Middleware

const (
	userIDKey    = "user_id"
	requestIDKey = "request_id"

	// HeaderRequestID is echoed back on every response
	HeaderRequestID = "X-Request-ID"
)

// SetUserID stores the authenticated user id on the request
func SetUserID(ctx *fasthttp.RequestCtx, userID int64) {
	ctx.SetUserValue(userIDKey, userID)
}

// UserID returns the authenticated user id set by AuthMiddleware
func UserID(ctx *fasthttp.RequestCtx) (int64, bool) {
	id, ok := ctx.UserValue(userIDKey).(int64)
	return id, ok
}

// RequestID returns the id assigned by the RequestID middleware
func RequestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(requestIDKey).(string)
	return id
}

// Chain applies middleware so that the first one is the outermost
func Chain(handler fasthttp.RequestHandler, middleware ...Middleware) fasthttp.RequestHandler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// MiddlewareGroup wraps a router group with middleware support
type MiddlewareGroup struct {
	group      *router.Group
	middleware []Middleware
}

// NewMiddlewareGroup creates a new middleware group
func NewMiddlewareGroup(group *router.Group) *MiddlewareGroup {
	return &MiddlewareGroup{
		group:      group,
		middleware: make([]Middleware, 0),
	}
}

// Use adds middleware to the group
func (g *MiddlewareGroup) Use(m ...Middleware) *MiddlewareGroup {
	g.middleware = append(g.middleware, m...)
	return g
}

// GET registers a GET handler
func (g *MiddlewareGroup) GET(path string, handler fasthttp.RequestHandler) {
	g.group.GET(path, Chain(handler, g.middleware...))
}

// POST registers a POST handler
func (g *MiddlewareGroup) POST(path string, handler fasthttp.RequestHandler) {
	g.group.POST(path, Chain(handler, g.middleware...))
}

// CORS answers preflight requests and sets allow headers for listed origins.
// Credentials are allowed, so the origin is echoed instead of "*".
func CORS(allowedOrigins []string) Middleware {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			origin := string(ctx.Request.Header.Peek(fasthttp.HeaderOrigin))
			_, ok := allowed[origin]

			if ok {
				ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowOrigin, origin)
				ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowCredentials, "true")
				ctx.Response.Header.Add(fasthttp.HeaderVary, fasthttp.HeaderOrigin)
			}

			if ctx.IsOptions() && len(ctx.Request.Header.Peek(fasthttp.HeaderAccessControlRequestMethod)) > 0 {
				if !ok {
					ctx.SetStatusCode(fasthttp.StatusBadRequest)
					ctx.SetBodyString("Disallowed CORS origin")
					return
				}
				ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowMethods, "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT")
				if reqHeaders := ctx.Request.Header.Peek(fasthttp.HeaderAccessControlRequestHeaders); len(reqHeaders) > 0 {
					ctx.Response.Header.SetBytesV(fasthttp.HeaderAccessControlAllowHeaders, reqHeaders)
				}
				ctx.Response.Header.Set(fasthttp.HeaderAccessControlMaxAge, "600")
				ctx.SetStatusCode(fasthttp.StatusOK)
				return
			}

			next(ctx)
		}
	}
}

// RequestIDMiddleware assigns a request id, reusing the incoming header when present
func RequestIDMiddleware() Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			id := string(ctx.Request.Header.Peek(HeaderRequestID))
			if id == "" {
				id = uuid.New().String()
			}
			ctx.SetUserValue(requestIDKey, id)
			ctx.Response.Header.Set(HeaderRequestID, id)
			next(ctx)
		}
	}
}

// Recovery turns a handler panic into a 500 response
func Recovery(logger zerolog.Logger) Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Interface("panic", r).
						Str("stack", string(debug.Stack())).
						Str("request_id", RequestID(ctx)).
						Msg("handler panic recovered")
					WriteErrorResponse(ctx, "internal server error", fasthttp.StatusInternalServerError)
				}
			}()
			next(ctx)
		}
	}
}

// AccessLog logs one line per request
func AccessLog(logger zerolog.Logger) Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)

			logger.Debug().
				Str("method", string(ctx.Method())).
				Str("path", string(ctx.Path())).
				Int("status", ctx.Response.StatusCode()).
				Dur("duration", time.Since(start)).
				Str("request_id", RequestID(ctx)).
				Msg("request handled")
		}
	}
}
