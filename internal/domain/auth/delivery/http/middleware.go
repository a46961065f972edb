package http

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/tgviewer/internal/domain/auth/deps"
	autherrors "github.com/Conte777/tgviewer/internal/domain/auth/errors"
	"github.com/Conte777/tgviewer/pkg/httputil"
)

const bearerPrefix = "bearer "

// NewAuthMiddleware resolves the bearer token into the request's user id
func NewAuthMiddleware(tokens deps.TokenManager, logger zerolog.Logger) httputil.AuthMiddleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			header := string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization))
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				httputil.WriteErrorResponse(ctx, autherrors.ErrNotAuthenticated.Error(), fasthttp.StatusUnauthorized)
				return
			}

			userID, err := tokens.Parse(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				logger.Debug().Err(err).
					Str("path", string(ctx.Path())).
					Msg("bearer token rejected")
				httputil.WriteErrorResponse(ctx, err.Error(), fasthttp.StatusUnauthorized)
				return
			}

			httputil.SetUserID(ctx, userID)
			next(ctx)
		}
	}
}
