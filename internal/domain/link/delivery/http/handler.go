package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/dto"
	linkerrors "github.com/Conte777/tgviewer/internal/domain/link/errors"
	pkgerrors "github.com/Conte777/tgviewer/pkg/errors"
	"github.com/Conte777/tgviewer/pkg/httputil"
)

const (
	msgCodeSent         = "Verification code sent to your phone"
	msgPasswordRequired = "Two-factor authentication password required"
	msgConnected        = "Telegram account connected successfully"
	msgDisconnected     = "Telegram account disconnected successfully"
	msgNoSessions       = "No active sessions found"
	msgNotAuthenticated = "Not authenticated"
)

// Handler handles Telegram account HTTP requests
type Handler struct {
	linker deps.LinkService
	viewer deps.ViewService
	mapper *pkgerrors.Mapper
	logger zerolog.Logger
}

// NewHandler creates a new Telegram account handler
func NewHandler(linker deps.LinkService, viewer deps.ViewService, logger zerolog.Logger) *Handler {
	logger = logger.With().Str("handler", "telegram").Logger()
	return &Handler{
		linker: linker,
		viewer: viewer,
		mapper: pkgerrors.NewMapper(logger),
		logger: logger,
	}
}

// Connect handles POST /api/telegram/connect
func (h *Handler) Connect(ctx *fasthttp.RequestCtx) {
	userID, ok := httputil.UserID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, msgNotAuthenticated, fasthttp.StatusUnauthorized)
		return
	}

	var req dto.ConnectRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		h.handleError(ctx, linkerrors.ErrInvalidBody)
		return
	}

	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		h.handleError(ctx, linkerrors.ErrPhoneRequired)
		return
	}

	if err := h.linker.Begin(ctx, userID, phone); err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ConnectResponse{
		Message:      msgCodeSent,
		RequiresCode: true,
	})
}

// Verify handles POST /api/telegram/verify
func (h *Handler) Verify(ctx *fasthttp.RequestCtx) {
	userID, ok := httputil.UserID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, msgNotAuthenticated, fasthttp.StatusUnauthorized)
		return
	}

	var req dto.VerifyRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		h.handleError(ctx, linkerrors.ErrInvalidBody)
		return
	}

	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		h.handleError(ctx, linkerrors.ErrPhoneRequired)
		return
	}

	result, err := h.linker.SubmitCode(ctx, userID, phone, strings.TrimSpace(req.Code), req.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	if result.RequiresPassword {
		httputil.WriteResponse(ctx, dto.VerifyResponse{
			Message:          msgPasswordRequired,
			RequiresPassword: true,
		})
		return
	}

	httputil.WriteResponse(ctx, dto.VerifyResponse{Message: msgConnected})
}

// Chats handles GET /api/telegram/chats
func (h *Handler) Chats(ctx *fasthttp.RequestCtx) {
	userID, ok := httputil.UserID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, msgNotAuthenticated, fasthttp.StatusUnauthorized)
		return
	}

	chats, err := h.viewer.ListConversations(ctx, userID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, chats)
}

// Messages handles GET /api/telegram/messages/{chat_id}?limit=N
func (h *Handler) Messages(ctx *fasthttp.RequestCtx) {
	userID, ok := httputil.UserID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, msgNotAuthenticated, fasthttp.StatusUnauthorized)
		return
	}

	rawChatID, _ := ctx.UserValue("chat_id").(string)
	chatID, err := strconv.ParseInt(rawChatID, 10, 64)
	if err != nil {
		h.handleError(ctx, linkerrors.ErrInvalidChatID)
		return
	}

	limit, err := parseLimit(ctx.QueryArgs().Peek("limit"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	messages, err := h.viewer.ListMessages(ctx, userID, chatID, limit)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, messages)
}

// Disconnect handles POST /api/telegram/disconnect
func (h *Handler) Disconnect(ctx *fasthttp.RequestCtx) {
	userID, ok := httputil.UserID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, msgNotAuthenticated, fasthttp.StatusUnauthorized)
		return
	}

	removed, err := h.viewer.Disconnect(ctx, userID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	message := msgNoSessions
	if removed {
		message = msgDisconnected
	}
	httputil.WriteResponse(ctx, dto.MessageResponse{Message: message})
}

// Status handles GET /api/telegram/status
func (h *Handler) Status(ctx *fasthttp.RequestCtx) {
	userID, ok := httputil.UserID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, msgNotAuthenticated, fasthttp.StatusUnauthorized)
		return
	}

	status, err := h.viewer.Status(ctx, userID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, status)
}

// parseLimit accepts an absent limit (0, the default applies) or an integer in [1,100]
func parseLimit(raw []byte) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	limit, err := strconv.Atoi(string(raw))
	if err != nil || limit < 1 || limit > 100 {
		return 0, linkerrors.ErrInvalidLimit
	}
	return limit, nil
}

// handleError writes err using the shared mapper. Missing pending links and sessions
// are client mistakes on these routes, so they are 400 instead of 404.
func (h *Handler) handleError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, linkerrors.ErrNoPendingLink), errors.Is(err, linkerrors.ErrNoActiveSession):
		httputil.WriteErrorResponse(ctx, err.Error(), fasthttp.StatusBadRequest)
	default:
		status, message := h.mapper.MapErrorToHTTP(err)
		httputil.WriteErrorResponse(ctx, message, status)
	}
}
