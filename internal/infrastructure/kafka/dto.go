package kafka

import "time"

// Link event types
const (
	EventAccountLinked   = "telegram.account.linked"
	EventAccountUnlinked = "telegram.account.unlinked"
)

// LinkEvent is published when a user links or unlinks a Telegram account
type LinkEvent struct {
	Type        string    `json:"type"`
	UserID      int64     `json:"user_id"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
