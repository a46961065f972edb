package deps

import (
	"context"

	"github.com/Conte777/tgviewer/internal/domain/link/entities"
)

// RemoteClient is the capability set the linking flow needs from a Telegram account client
type RemoteClient interface {
	// Connect opens the connection; the connection outlives ctx until Disconnect
	Connect(ctx context.Context) error

	IsAuthorized(ctx context.Context) (bool, error)

	// RequestCode asks Telegram to deliver a login code to phone
	RequestCode(ctx context.Context, phone string) error

	SignIn(ctx context.Context, phone, code string) entities.SignInResult

	SignInWithPassword(ctx context.Context, password string) entities.SignInResult

	// ExportCredential returns a portable string that restores this authorization
	ExportCredential(ctx context.Context) (string, error)

	// Conversations yields up to limit dialogs in Telegram's order.
	// An error returned by yield stops the iteration and is returned as is.
	Conversations(ctx context.Context, limit int, yield func(entities.RemoteConversation) error) error

	// Messages yields up to limit messages of chatID, newest first
	Messages(ctx context.Context, chatID int64, limit int, yield func(entities.RemoteMessage) error) error

	// Disconnect is idempotent
	Disconnect(ctx context.Context) error
}

// ClientFactory creates remote clients
type ClientFactory interface {
	// Configured reports whether the API identity pair is set
	Configured() bool

	// New returns an unauthorized client with empty session
	New() (RemoteClient, error)

	// FromCredential returns a client restored from an exported credential
	FromCredential(credential string) (RemoteClient, error)
}

// CredentialRepository persists exported credentials
type CredentialRepository interface {
	// Save deactivates every active credential of userID and inserts a new active one
	Save(ctx context.Context, userID int64, credential, phone string) (*entities.StoredCredential, error)

	// GetActive returns errors.ErrNoActiveSession when none exists
	GetActive(ctx context.Context, userID int64) (*entities.StoredCredential, error)

	// DeactivateAll returns the number of credentials that were active
	DeactivateAll(ctx context.Context, userID int64) (int64, error)
}

// PendingHandle is an acquired pending link. Exactly one of Release or Finish must be called.
type PendingHandle interface {
	Client() RemoteClient
	AwaitingPassword() bool
	MarkAwaitingPassword()

	// Release keeps the entry and refreshes its idle timer
	Release()

	// Finish removes the entry and disconnects its client
	Finish(ctx context.Context)
}

// PendingStore holds in-flight handshakes keyed by user and phone
type PendingStore interface {
	// Put registers client under key; a replaced client is disconnected before Put returns
	Put(ctx context.Context, key entities.PendingKey, client RemoteClient) error

	// Acquire locks the entry for key; false when there is none
	Acquire(key entities.PendingKey) (PendingHandle, bool)

	Len() int
}

// EventPublisher announces link state changes
type EventPublisher interface {
	PublishLinked(ctx context.Context, userID int64, phone string) error
	PublishUnlinked(ctx context.Context, userID int64) error
}

// LinkService drives the linking handshake
type LinkService interface {
	Begin(ctx context.Context, userID int64, phone string) error
	SubmitCode(ctx context.Context, userID int64, phone, code, password string) (entities.VerifyResult, error)
}

// ViewService reads data of the linked account
type ViewService interface {
	ListConversations(ctx context.Context, userID int64) ([]entities.ConversationSummary, error)
	ListMessages(ctx context.Context, userID, chatID int64, limit int) ([]entities.MessageSummary, error)
	Status(ctx context.Context, userID int64) (entities.LinkStatus, error)

	// Disconnect reports whether any credential was deactivated
	Disconnect(ctx context.Context, userID int64) (bool, error)
}
