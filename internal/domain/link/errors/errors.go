package errors

import (
	pkgerrors "github.com/Conte777/tgviewer/pkg/errors"
)

var (
	ErrNotConfigured   = pkgerrors.NewConfigurationError("Telegram API credentials not configured")
	ErrNoPendingLink   = pkgerrors.NewNotFoundError("No active connection found. Please request a new code.")
	ErrNoActiveSession = pkgerrors.NewNotFoundError("No active Telegram session found")
	ErrInvalidCode     = pkgerrors.NewValidationError("Invalid verification code")
	ErrInvalidPassword = pkgerrors.NewValidationError("Invalid 2FA password")
	ErrSessionExpired  = pkgerrors.NewUnauthorizedError("Telegram session expired. Please reconnect.")
	ErrTooManyPending  = pkgerrors.NewServiceUnavailableError("too many pending links, try again later")

	ErrPhoneRequired = pkgerrors.NewValidationError("phone_number is required")
	ErrCodeRequired  = pkgerrors.NewValidationError("code is required")
	ErrInvalidChatID = pkgerrors.NewValidationError("chat_id must be an integer")
	ErrInvalidLimit  = pkgerrors.NewValidationError("limit must be between 1 and 100")
	ErrInvalidBody   = pkgerrors.NewValidationError("invalid request body")
)

func SendCodeFailed(err error) error {
	return pkgerrors.NewValidationErrorf("Failed to send code: %v", err)
}

func AuthenticationFailed(err error) error {
	return pkgerrors.NewValidationErrorf("Authentication failed: %v", err)
}

func ConnectFailed(err error) error {
	return pkgerrors.NewValidationErrorf("Failed to connect to Telegram: %v", err)
}

func LoadChatsFailed(err error) error {
	return pkgerrors.NewValidationErrorf("Failed to load chats: %v", err)
}

func LoadMessagesFailed(err error) error {
	return pkgerrors.NewValidationErrorf("Failed to load messages: %v", err)
}

func SaveFailed(err error) error {
	return pkgerrors.WrapInternalError("Failed to save session", err)
}

func RestoreFailed(err error) error {
	return pkgerrors.WrapInternalError("Failed to restore Telegram session", err)
}
