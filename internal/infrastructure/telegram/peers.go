package telegram

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/Conte777/tgviewer/internal/domain/link/entities"
)

// channelIDOffset follows the client convention of -100… ids for channels
const channelIDOffset = 1_000_000_000_000

type peerKind int

const (
	peerUser peerKind = iota
	peerChat
	peerChannel
)

func markChat(id int64) int64    { return -id }
func markChannel(id int64) int64 { return -(channelIDOffset + id) }

// markPeer returns the signed id used by the API for a peer
func markPeer(p tg.PeerClass) (int64, bool) {
	switch p := p.(type) {
	case *tg.PeerUser:
		return p.UserID, true
	case *tg.PeerChat:
		return markChat(p.ChatID), true
	case *tg.PeerChannel:
		return markChannel(p.ChannelID), true
	default:
		return 0, false
	}
}

// unmarkPeer splits a signed id into its kind and raw id
func unmarkPeer(marked int64) (peerKind, int64) {
	switch {
	case marked >= 0:
		return peerUser, marked
	case marked <= -channelIDOffset:
		return peerChannel, -marked - channelIDOffset
	default:
		return peerChat, -marked
	}
}

type channelInfo struct {
	title      string
	username   string
	accessHash int64
	megagroup  bool
}

// peerIndex resolves peers against the users and chats returned with a response
type peerIndex struct {
	users    map[int64]*tg.User
	chats    map[int64]string
	channels map[int64]channelInfo
}

func newPeerIndex(users []tg.UserClass, chats []tg.ChatClass) *peerIndex {
	idx := &peerIndex{
		users:    make(map[int64]*tg.User, len(users)),
		chats:    make(map[int64]string),
		channels: make(map[int64]channelInfo),
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			idx.users[user.ID] = user
		}
	}
	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			idx.chats[chat.ID] = chat.Title
		case *tg.ChatForbidden:
			idx.chats[chat.ID] = chat.Title
		case *tg.Channel:
			idx.channels[chat.ID] = channelInfo{
				title:      chat.Title,
				username:   chat.Username,
				accessHash: chat.AccessHash,
				megagroup:  chat.Megagroup,
			}
		case *tg.ChannelForbidden:
			idx.channels[chat.ID] = channelInfo{
				title:      chat.Title,
				accessHash: chat.AccessHash,
				megagroup:  chat.Megagroup,
			}
		}
	}
	return idx
}

func (idx *peerIndex) addUser(u *tg.User) {
	if u != nil {
		idx.users[u.ID] = u
	}
}

// conversation classifies a dialog peer; any channel is a channel, megagroups are also groups
func (idx *peerIndex) conversation(d *tg.Dialog) (entities.RemoteConversation, bool) {
	id, ok := markPeer(d.Peer)
	if !ok {
		return entities.RemoteConversation{}, false
	}
	conv := entities.RemoteConversation{ID: id, UnreadCount: d.UnreadCount}

	switch p := d.Peer.(type) {
	case *tg.PeerUser:
		conv.IsUser = true
		if u, ok := idx.users[p.UserID]; ok {
			conv.Title = fullName(u.FirstName, u.LastName)
		}
	case *tg.PeerChat:
		conv.IsGroup = true
		conv.Title = idx.chats[p.ChatID]
	case *tg.PeerChannel:
		ch := idx.channels[p.ChannelID]
		conv.IsChannel = true
		conv.IsGroup = ch.megagroup
		conv.Title = ch.title
	}

	return conv, true
}

// inputPeer builds the request peer for p; users and channels need an access hash
func (idx *peerIndex) inputPeer(p tg.PeerClass) (tg.InputPeerClass, bool) {
	switch p := p.(type) {
	case *tg.PeerUser:
		u, ok := idx.users[p.UserID]
		if !ok {
			return nil, false
		}
		if u.Self {
			return &tg.InputPeerSelf{}, true
		}
		return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}, true
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}, true
	case *tg.PeerChannel:
		ch, ok := idx.channels[p.ChannelID]
		if !ok {
			return nil, false
		}
		return &tg.InputPeerChannel{ChannelID: p.ChannelID, AccessHash: ch.accessHash}, true
	default:
		return nil, false
	}
}

// sender resolves the author of a message
func (idx *peerIndex) sender(p tg.PeerClass) *entities.RemoteSender {
	id, ok := markPeer(p)
	if !ok {
		return nil
	}
	s := &entities.RemoteSender{ID: id}

	switch p := p.(type) {
	case *tg.PeerUser:
		if u, ok := idx.users[p.UserID]; ok {
			s.FirstName = u.FirstName
			s.LastName = u.LastName
			s.Username = u.Username
		}
	case *tg.PeerChat:
		s.Title = idx.chats[p.ChatID]
	case *tg.PeerChannel:
		ch := idx.channels[p.ChannelID]
		s.Title = ch.title
		s.Username = ch.username
	}

	return s
}

// remoteMessage converts a history entry. selfID is used for outgoing messages
// that carry no author.
func (idx *peerIndex) remoteMessage(m tg.MessageClass, selfID int64) (entities.RemoteMessage, bool) {
	var (
		out          bool
		from, peerID tg.PeerClass
		rm           entities.RemoteMessage
	)

	switch msg := m.(type) {
	case *tg.Message:
		rm = entities.RemoteMessage{
			ID:    msg.ID,
			Text:  msg.Message,
			Date:  time.Unix(int64(msg.Date), 0).UTC(),
			Media: mediaFlags(msg.Media),
		}
		out, from, peerID = msg.Out, msg.FromID, msg.PeerID
	case *tg.MessageService:
		rm = entities.RemoteMessage{
			ID:   msg.ID,
			Date: time.Unix(int64(msg.Date), 0).UTC(),
		}
		out, from, peerID = msg.Out, msg.FromID, msg.PeerID
	default:
		return entities.RemoteMessage{}, false
	}

	switch {
	case from != nil:
	case out && selfID != 0:
		from = &tg.PeerUser{UserID: selfID}
	default:
		from = peerID
	}
	rm.Sender = idx.sender(from)

	return rm, true
}

// mediaFlags reports the media kind. Every document sets Document, including
// voice notes and stickers; video is reported alongside it.
func mediaFlags(media tg.MessageMediaClass) entities.MediaFlags {
	if media == nil {
		return entities.MediaFlags{}
	}
	if _, empty := media.(*tg.MessageMediaEmpty); empty {
		return entities.MediaFlags{}
	}

	flags := entities.MediaFlags{Present: true}
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		flags.Photo = true
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return flags
		}
		flags.Document = true
		for _, attr := range doc.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeVideo:
				flags.Video = true
			case *tg.DocumentAttributeAudio:
				if a.Voice {
					flags.Voice = true
				}
			case *tg.DocumentAttributeSticker:
				flags.Sticker = true
			}
		}
	}
	return flags
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

// messageDate finds the date of message id in peer, used as a pagination offset
func messageDate(messages []tg.MessageClass, peer tg.PeerClass, id int) int {
	want, _ := markPeer(peer)
	for _, m := range messages {
		var (
			msgID  int
			date   int
			peerID tg.PeerClass
		)
		switch msg := m.(type) {
		case *tg.Message:
			msgID, date, peerID = msg.ID, msg.Date, msg.PeerID
		case *tg.MessageService:
			msgID, date, peerID = msg.ID, msg.Date, msg.PeerID
		default:
			continue
		}
		if msgID != id {
			continue
		}
		if got, ok := markPeer(peerID); ok && got == want {
			return date
		}
	}
	return 0
}
