package http

import (
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/tgviewer/internal/domain/auth/deps"
	"github.com/Conte777/tgviewer/internal/domain/auth/dto"
	autherrors "github.com/Conte777/tgviewer/internal/domain/auth/errors"
	pkgerrors "github.com/Conte777/tgviewer/pkg/errors"
	"github.com/Conte777/tgviewer/pkg/httputil"
)

const tokenType = "bearer"

// Handler handles user account HTTP requests
type Handler struct {
	service deps.AuthService
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewHandler creates a new auth handler
func NewHandler(service deps.AuthService, logger zerolog.Logger) *Handler {
	logger = logger.With().Str("handler", "auth").Logger()
	return &Handler{
		service: service,
		mapper:  pkgerrors.NewMapper(logger),
		logger:  logger,
	}
}

// Register handles POST /api/auth/register
func (h *Handler) Register(ctx *fasthttp.RequestCtx) {
	var req dto.CredentialsRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		h.handleError(ctx, autherrors.ErrInvalidBody)
		return
	}

	token, err := h.service.Register(ctx, req.Username, req.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.TokenResponse{
		AccessToken: token,
		TokenType:   tokenType,
		Message:     "User registered successfully",
	})
}

// Login handles POST /api/auth/login
func (h *Handler) Login(ctx *fasthttp.RequestCtx) {
	var req dto.CredentialsRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		h.handleError(ctx, autherrors.ErrInvalidBody)
		return
	}

	token, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.TokenResponse{
		AccessToken: token,
		TokenType:   tokenType,
		Message:     "Login successful",
	})
}

// Me handles GET /api/auth/me
func (h *Handler) Me(ctx *fasthttp.RequestCtx) {
	userID, ok := httputil.UserID(ctx)
	if !ok {
		h.handleError(ctx, autherrors.ErrNotAuthenticated)
		return
	}

	user, err := h.service.Me(ctx, userID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// Logout handles POST /api/auth/logout; tokens are dropped by the client
func (h *Handler) Logout(ctx *fasthttp.RequestCtx) {
	httputil.WriteResponse(ctx, dto.MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) handleError(ctx *fasthttp.RequestCtx, err error) {
	status, message := h.mapper.MapErrorToHTTP(err)
	httputil.WriteErrorResponse(ctx, message, status)
}
