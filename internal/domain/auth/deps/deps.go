package deps

import (
	"context"

	"github.com/Conte777/tgviewer/internal/domain/auth/entities"
)

// UserRepository persists user accounts
type UserRepository interface {
	// Create returns errors.ErrUsernameTaken when the username exists
	Create(ctx context.Context, username, passwordHash string) (*entities.User, error)

	// GetByUsername returns errors.ErrUserNotFound when there is no such user
	GetByUsername(ctx context.Context, username string) (*entities.User, error)

	// GetByID returns errors.ErrUserNotFound when there is no such user
	GetByID(ctx context.Context, id int64) (*entities.User, error)
}

// TokenManager issues and verifies bearer tokens
type TokenManager interface {
	Issue(userID int64) (string, error)

	// Parse returns errors.ErrTokenExpired or errors.ErrInvalidToken on failure
	Parse(token string) (int64, error)
}

// AuthService handles user accounts
type AuthService interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, userID int64) (*entities.User, error)
}
