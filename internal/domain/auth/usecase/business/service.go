package business

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Conte777/tgviewer/internal/domain/auth/deps"
	"github.com/Conte777/tgviewer/internal/domain/auth/entities"
	autherrors "github.com/Conte777/tgviewer/internal/domain/auth/errors"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

// Service registers and authenticates users
type Service struct {
	users   deps.UserRepository
	tokens  deps.TokenManager
	cost    int
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(users deps.UserRepository, tokens deps.TokenManager, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		cost:    bcrypt.DefaultCost,
		metrics: m,
		logger:  logger.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates a user and returns an access token
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.RecordAuth("register", "invalid")
		return "", autherrors.ErrMissingFields
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		s.metrics.RecordAuth("register", "taken")
		return "", autherrors.ErrUsernameTaken
	} else if !errors.Is(err, autherrors.ErrUserNotFound) {
		return "", err
	}

	if len(password) < autherrors.MinPasswordLength {
		s.metrics.RecordAuth("register", "invalid")
		return "", autherrors.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", autherrors.CreateUserFailed(err)
	}

	user, err := s.users.Create(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, autherrors.ErrUsernameTaken) {
			s.metrics.RecordAuth("register", "taken")
			return "", err
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to create user")
		return "", autherrors.CreateUserFailed(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", autherrors.CreateUserFailed(err)
	}

	s.metrics.RecordAuth("register", "success")
	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")

	return token, nil
}

// Login checks the password and returns an access token
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.RecordAuth("login", "invalid")
		return "", autherrors.ErrMissingFields
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, autherrors.ErrUserNotFound) {
			s.metrics.RecordAuth("login", "rejected")
			return "", autherrors.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.RecordAuth("login", "rejected")
		return "", autherrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}

	s.metrics.RecordAuth("login", "success")
	s.logger.Debug().Int64("user_id", user.ID).Msg("user logged in")

	return token, nil
}

// Me returns the user behind an authenticated request
func (s *Service) Me(ctx context.Context, userID int64) (*entities.User, error) {
	return s.users.GetByID(ctx, userID)
}

var _ deps.AuthService = (*Service)(nil)
