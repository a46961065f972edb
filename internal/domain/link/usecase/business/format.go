package business

import (
	"strings"
	"time"

	"github.com/Conte777/tgviewer/internal/domain/link/entities"
)

const (
	unnamedChat   = "Unnamed Chat"
	unknownSender = "Unknown"
	mediaFallback = "[Media/System message]"
)

// SummarizeConversation maps a remote dialog to its response shape.
// A channel flag wins over a group flag.
func SummarizeConversation(c entities.RemoteConversation) entities.ConversationSummary {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = unnamedChat
	}

	return entities.ConversationSummary{
		ID:          c.ID,
		Title:       title,
		Type:        conversationType(c),
		UnreadCount: c.UnreadCount,
	}
}

func conversationType(c entities.RemoteConversation) string {
	switch {
	case c.IsChannel:
		return entities.ConversationChannel
	case c.IsGroup:
		return entities.ConversationGroup
	default:
		return entities.ConversationUser
	}
}

// SummarizeMessage maps a remote message to its response shape
func SummarizeMessage(m entities.RemoteMessage) entities.MessageSummary {
	summary := entities.MessageSummary{
		ID:       m.ID,
		Text:     messageText(m),
		Date:     m.Date.UTC().Format(time.RFC3339),
		FromUser: senderName(m.Sender),
	}
	if m.Sender != nil {
		id := m.Sender.ID
		summary.FromUserID = &id
	}
	return summary
}

func messageText(m entities.RemoteMessage) string {
	if m.Text != "" {
		return m.Text
	}
	if !m.Media.Present {
		return mediaFallback
	}

	switch {
	case m.Media.Photo:
		return "[Photo]"
	case m.Media.Video:
		return "[Video]"
	case m.Media.Document:
		return "[Document]"
	case m.Media.Voice:
		return "[Voice message]"
	case m.Media.Sticker:
		return "[Sticker]"
	default:
		return mediaFallback
	}
}

func senderName(s *entities.RemoteSender) string {
	if s == nil {
		return unknownSender
	}

	if s.FirstName != "" {
		return strings.TrimSpace(s.FirstName + " " + s.LastName)
	}
	if s.Title != "" {
		return s.Title
	}
	if s.Username != "" {
		return "@" + s.Username
	}
	return unknownSender
}
