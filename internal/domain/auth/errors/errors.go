package errors

import (
	pkgerrors "github.com/Conte777/tgviewer/pkg/errors"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

var (
	ErrMissingFields      = pkgerrors.NewValidationError("username and password are required")
	ErrUsernameTaken      = pkgerrors.NewValidationError("Username already exists")
	ErrPasswordTooShort   = pkgerrors.NewValidationErrorf("Password must be at least %d characters long", MinPasswordLength)
	ErrInvalidCredentials = pkgerrors.NewUnauthorizedError("Invalid username or password")
	ErrUserNotFound       = pkgerrors.NewNotFoundError("User not found")
	ErrInvalidBody        = pkgerrors.NewValidationError("invalid request body")

	ErrNotAuthenticated = pkgerrors.NewUnauthorizedError("Not authenticated")
	ErrTokenExpired     = pkgerrors.NewUnauthorizedError("Token has expired")
	ErrInvalidToken     = pkgerrors.NewUnauthorizedError("Invalid token")
)

func CreateUserFailed(err error) error {
	return pkgerrors.WrapInternalError("Failed to create user", err)
}
