package business

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	linkerrors "github.com/Conte777/tgviewer/internal/domain/link/errors"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
	"github.com/Conte777/tgviewer/internal/utils"
)

// Linker drives the phone + code + optional 2FA handshake
type Linker struct {
	factory     deps.ClientFactory
	pending     deps.PendingStore
	repo        deps.CredentialRepository
	events      deps.EventPublisher
	callTimeout time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewLinker(
	factory deps.ClientFactory,
	pending deps.PendingStore,
	repo deps.CredentialRepository,
	events deps.EventPublisher,
	cfg *config.LinkConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Linker {
	return &Linker{
		factory:     factory,
		pending:     pending,
		repo:        repo,
		events:      events,
		callTimeout: cfg.CallTimeout,
		metrics:     m,
		logger:      logger.With().Str("component", "linker").Logger(),
	}
}

// Begin connects a fresh client, asks Telegram for a login code and parks the client
// until the code is submitted
func (l *Linker) Begin(ctx context.Context, userID int64, phone string) error {
	if phone == "" {
		return linkerrors.ErrPhoneRequired
	}

	if !l.factory.Configured() {
		l.metrics.RecordLinkBegin("not_configured")
		return linkerrors.ErrNotConfigured
	}

	log := l.logger.With().
		Int64("user_id", userID).
		Str("phone", utils.MaskPhoneNumber(phone)).
		Logger()

	client, err := l.factory.New()
	if err != nil {
		log.Error().Err(err).Msg("failed to create telegram client")
		l.metrics.RecordLinkBegin("error")
		return linkerrors.SendCodeFailed(err)
	}

	if err := l.requestCode(ctx, client, phone); err != nil {
		l.disconnect(ctx, client)
		log.Warn().Err(err).Msg("failed to send login code")
		l.metrics.RecordLinkBegin("error")
		return linkerrors.SendCodeFailed(err)
	}

	key := entities.PendingKey{UserID: userID, Phone: phone}
	if err := l.pending.Put(ctx, key, client); err != nil {
		l.disconnect(ctx, client)
		log.Warn().Err(err).Msg("failed to register pending link")
		l.metrics.RecordLinkBegin("rejected")
		return err
	}

	l.metrics.RecordLinkBegin("success")
	log.Info().Msg("login code sent")

	return nil
}

func (l *Linker) requestCode(ctx context.Context, client deps.RemoteClient, phone string) error {
	if err := l.call(ctx, client.Connect); err != nil {
		return err
	}

	var authorized bool
	err := l.call(ctx, func(ctx context.Context) error {
		var err error
		authorized, err = client.IsAuthorized(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if authorized {
		return nil
	}

	return l.call(ctx, func(ctx context.Context) error {
		return client.RequestCode(ctx, phone)
	})
}

// SubmitCode finishes the handshake started by Begin. Every outcome except
// RequiresPassword removes the pending link and disconnects its client.
func (l *Linker) SubmitCode(ctx context.Context, userID int64, phone, code, password string) (entities.VerifyResult, error) {
	if phone == "" {
		return entities.VerifyResult{}, linkerrors.ErrPhoneRequired
	}

	log := l.logger.With().
		Int64("user_id", userID).
		Str("phone", utils.MaskPhoneNumber(phone)).
		Logger()

	link, ok := l.pending.Acquire(entities.PendingKey{UserID: userID, Phone: phone})
	if !ok {
		l.metrics.RecordLinkVerify("no_pending")
		return entities.VerifyResult{}, linkerrors.ErrNoPendingLink
	}
	client := link.Client()

	var result entities.SignInResult
	if link.AwaitingPassword() && password != "" {
		// the code was already accepted by a previous submission
		result = entities.NeedsSecondFactor()
	} else {
		if code == "" {
			link.Release()
			return entities.VerifyResult{}, linkerrors.ErrCodeRequired
		}
		result = l.signIn(ctx, client, phone, code)
	}

	if result.Outcome == entities.SignInNeedsSecondFactor {
		if password == "" {
			link.MarkAwaitingPassword()
			link.Release()
			l.metrics.RecordLinkVerify("requires_password")
			log.Info().Msg("two-factor password required")
			return entities.VerifyResult{RequiresPassword: true}, nil
		}

		result = l.signInWithPassword(ctx, client, password)
		if result.Outcome != entities.SignInAccepted {
			link.Finish(ctx)
			l.metrics.RecordLinkVerify(entities.SignInInvalidPassword.String())
			log.Warn().Err(result.Err).Str("outcome", result.Outcome.String()).Msg("2FA password rejected")
			return entities.VerifyResult{}, linkerrors.ErrInvalidPassword
		}
	}

	switch result.Outcome {
	case entities.SignInAccepted:
	case entities.SignInInvalidCode:
		link.Finish(ctx)
		l.metrics.RecordLinkVerify(result.Outcome.String())
		log.Info().Msg("invalid verification code")
		return entities.VerifyResult{}, linkerrors.ErrInvalidCode
	case entities.SignInInvalidPassword:
		link.Finish(ctx)
		l.metrics.RecordLinkVerify(result.Outcome.String())
		return entities.VerifyResult{}, linkerrors.ErrInvalidPassword
	default:
		link.Finish(ctx)
		l.metrics.RecordLinkVerify(entities.SignInFailed.String())
		log.Warn().Err(result.Err).Msg("sign in failed")
		return entities.VerifyResult{}, linkerrors.AuthenticationFailed(result.Err)
	}

	if err := l.persist(ctx, client, userID, phone); err != nil {
		link.Finish(ctx)
		l.metrics.RecordLinkVerify("save_failed")
		log.Error().Err(err).Msg("failed to save telegram session")
		return entities.VerifyResult{}, linkerrors.SaveFailed(err)
	}

	link.Finish(ctx)
	l.metrics.RecordLinkVerify(entities.SignInAccepted.String())
	log.Info().Msg("telegram account linked")

	if err := l.events.PublishLinked(ctx, userID, phone); err != nil {
		log.Warn().Err(err).Msg("failed to publish link event")
	}

	return entities.VerifyResult{}, nil
}

func (l *Linker) signIn(ctx context.Context, client deps.RemoteClient, phone, code string) entities.SignInResult {
	ctx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()
	return client.SignIn(ctx, phone, code)
}

func (l *Linker) signInWithPassword(ctx context.Context, client deps.RemoteClient, password string) entities.SignInResult {
	ctx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()
	return client.SignInWithPassword(ctx, password)
}

func (l *Linker) persist(ctx context.Context, client deps.RemoteClient, userID int64, phone string) error {
	var credential string
	err := l.call(ctx, func(ctx context.Context) error {
		var err error
		credential, err = client.ExportCredential(ctx)
		return err
	})
	if err != nil {
		return err
	}

	_, err = l.repo.Save(ctx, userID, credential, phone)
	return err
}

func (l *Linker) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()
	return fn(ctx)
}

func (l *Linker) disconnect(ctx context.Context, client deps.RemoteClient) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.callTimeout)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		l.logger.Warn().Err(err).Msg("failed to disconnect telegram client")
	}
}

var _ deps.LinkService = (*Linker)(nil)
