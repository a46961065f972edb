package entities

import "time"

// Conversation categories
const (
	ConversationUser    = "user"
	ConversationGroup   = "group"
	ConversationChannel = "channel"
)

// PendingKey identifies an in-flight linking handshake
type PendingKey struct {
	UserID int64
	Phone  string
}

// SignInOutcome enumerates the results of a sign-in step
type SignInOutcome int

const (
	SignInAccepted SignInOutcome = iota
	SignInNeedsSecondFactor
	SignInInvalidCode
	SignInInvalidPassword
	SignInFailed
)

func (o SignInOutcome) String() string {
	switch o {
	case SignInAccepted:
		return "accepted"
	case SignInNeedsSecondFactor:
		return "needs_second_factor"
	case SignInInvalidCode:
		return "invalid_code"
	case SignInInvalidPassword:
		return "invalid_password"
	default:
		return "failed"
	}
}

// SignInResult is returned by the code and password steps.
// Err is set only for SignInFailed.
type SignInResult struct {
	Outcome SignInOutcome
	Err     error
}

func Accepted() SignInResult          { return SignInResult{Outcome: SignInAccepted} }
func NeedsSecondFactor() SignInResult { return SignInResult{Outcome: SignInNeedsSecondFactor} }
func InvalidCode() SignInResult       { return SignInResult{Outcome: SignInInvalidCode} }
func InvalidPassword() SignInResult   { return SignInResult{Outcome: SignInInvalidPassword} }

func Failed(err error) SignInResult {
	return SignInResult{Outcome: SignInFailed, Err: err}
}

// VerifyResult is the non-error result of a code submission
type VerifyResult struct {
	RequiresPassword bool
}

// RemoteConversation is a dialog as reported by the remote account
type RemoteConversation struct {
	ID          int64
	Title       string
	IsUser      bool
	IsGroup     bool
	IsChannel   bool
	UnreadCount int
}

// MediaFlags describes the media attached to a message
type MediaFlags struct {
	Present  bool
	Photo    bool
	Video    bool
	Document bool
	Voice    bool
	Sticker  bool
}

// RemoteSender is the resolved author of a message
type RemoteSender struct {
	ID        int64
	FirstName string
	LastName  string
	Title     string
	Username  string
}

// RemoteMessage is a history entry as reported by the remote account
type RemoteMessage struct {
	ID     int
	Text   string
	Date   time.Time
	Media  MediaFlags
	Sender *RemoteSender
}

// ConversationSummary is the stable response shape of a conversation
type ConversationSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	UnreadCount int    `json:"unread_count"`
}

// MessageSummary is the stable response shape of a message
type MessageSummary struct {
	ID         int    `json:"id"`
	Text       string `json:"text"`
	Date       string `json:"date"`
	FromUser   string `json:"from_user"`
	FromUserID *int64 `json:"from_user_id"`
}

// LinkStatus reports whether the user has an active linked account
type LinkStatus struct {
	Connected   bool    `json:"connected"`
	PhoneNumber *string `json:"phone_number"`
}
