package business

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	linkerrors "github.com/Conte777/tgviewer/internal/domain/link/errors"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100

	// upper bound for preallocating the chat list, the limit itself is configurable
	conversationPrealloc = 100
)

// Viewer reads chats and history of the linked account. It never touches pending links:
// every call rehydrates a fresh client from the stored credential.
type Viewer struct {
	factory           deps.ClientFactory
	repo              deps.CredentialRepository
	events            deps.EventPublisher
	conversationLimit int
	callTimeout       time.Duration
	metrics           *metrics.Metrics
	logger            zerolog.Logger
}

func NewViewer(
	factory deps.ClientFactory,
	repo deps.CredentialRepository,
	events deps.EventPublisher,
	cfg *config.LinkConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Viewer {
	return &Viewer{
		factory:           factory,
		repo:              repo,
		events:            events,
		conversationLimit: cfg.ConversationLimit,
		callTimeout:       cfg.CallTimeout,
		metrics:           m,
		logger:            logger.With().Str("component", "viewer").Logger(),
	}
}

func (v *Viewer) ListConversations(ctx context.Context, userID int64) ([]entities.ConversationSummary, error) {
	client, err := v.open(ctx, userID)
	if err != nil {
		v.metrics.RecordQuery("conversations", "error")
		return nil, err
	}
	defer v.disconnect(client)

	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	out := make([]entities.ConversationSummary, 0, max(0, min(v.conversationLimit, conversationPrealloc)))
	err = client.Conversations(callCtx, v.conversationLimit, func(c entities.RemoteConversation) error {
		out = append(out, SummarizeConversation(c))
		return nil
	})
	if err != nil {
		v.metrics.RecordQuery("conversations", "error")
		v.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to load chats")
		return nil, linkerrors.LoadChatsFailed(err)
	}

	v.metrics.RecordQuery("conversations", "success")
	return out, nil
}

func (v *Viewer) ListMessages(ctx context.Context, userID, chatID int64, limit int) ([]entities.MessageSummary, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	client, err := v.open(ctx, userID)
	if err != nil {
		v.metrics.RecordQuery("messages", "error")
		return nil, err
	}
	defer v.disconnect(client)

	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	out := make([]entities.MessageSummary, 0, limit)
	err = client.Messages(callCtx, chatID, limit, func(m entities.RemoteMessage) error {
		out = append(out, SummarizeMessage(m))
		return nil
	})
	if err != nil {
		v.metrics.RecordQuery("messages", "error")
		v.logger.Warn().Err(err).
			Int64("user_id", userID).
			Int64("chat_id", chatID).
			Msg("failed to load messages")
		return nil, linkerrors.LoadMessagesFailed(err)
	}

	v.metrics.RecordQuery("messages", "success")
	return out, nil
}

// Status is a pure read of the stored credential
func (v *Viewer) Status(ctx context.Context, userID int64) (entities.LinkStatus, error) {
	stored, err := v.repo.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, linkerrors.ErrNoActiveSession) {
			return entities.LinkStatus{Connected: false}, nil
		}
		v.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to read telegram session")
		return entities.LinkStatus{}, err
	}

	phone := stored.PhoneNumber
	return entities.LinkStatus{Connected: true, PhoneNumber: &phone}, nil
}

func (v *Viewer) Disconnect(ctx context.Context, userID int64) (bool, error) {
	n, err := v.repo.DeactivateAll(ctx, userID)
	if err != nil {
		v.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to deactivate telegram sessions")
		return false, err
	}

	if n == 0 {
		return false, nil
	}

	v.logger.Info().Int64("user_id", userID).Int64("sessions", n).Msg("telegram account disconnected")

	if err := v.events.PublishUnlinked(ctx, userID); err != nil {
		v.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to publish unlink event")
	}

	return true, nil
}

// open returns a connected, authorized client for the user's active credential.
// The caller owns the client and must disconnect it.
func (v *Viewer) open(ctx context.Context, userID int64) (deps.RemoteClient, error) {
	if !v.factory.Configured() {
		return nil, linkerrors.ErrNotConfigured
	}

	stored, err := v.repo.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	client, err := v.factory.FromCredential(stored.SessionString)
	if err != nil {
		v.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to restore telegram session")
		return nil, linkerrors.RestoreFailed(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	if err := client.Connect(callCtx); err != nil {
		v.disconnect(client)
		return nil, linkerrors.ConnectFailed(err)
	}

	authorized, err := client.IsAuthorized(callCtx)
	if err != nil {
		v.disconnect(client)
		return nil, linkerrors.ConnectFailed(err)
	}
	if !authorized {
		v.disconnect(client)
		v.logger.Info().Int64("user_id", userID).Msg("stored telegram session is no longer authorized")
		return nil, linkerrors.ErrSessionExpired
	}

	return client, nil
}

func (v *Viewer) disconnect(client deps.RemoteClient) {
	ctx, cancel := context.WithTimeout(context.Background(), v.callTimeout)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		v.logger.Warn().Err(err).Msg("failed to disconnect telegram client")
	}
}

var _ deps.ViewService = (*Viewer)(nil)
