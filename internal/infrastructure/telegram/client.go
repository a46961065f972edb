package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

const (
	dialogBatchSize = 100
	peerScanLimit   = 1000
)

// ErrNotConnected is returned by API calls made before Connect
var ErrNotConnected = errors.New("telegram client is not connected")

// MTProtoClient implements deps.RemoteClient using gotd/td library
type MTProtoClient struct {
	apiID   int
	apiHash string

	storage *MemorySessionStorage

	client  *telegram.Client
	api     *tg.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu         sync.Mutex
	connected  bool
	cancelFunc context.CancelFunc
	runDone    chan struct{}

	// set by RequestCode, consumed by SignIn
	phoneCodeHash string
	self          *tg.User
}

func newMTProtoClient(
	apiID int,
	apiHash string,
	storage *MemorySessionStorage,
	limiter *rate.Limiter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *MTProtoClient {
	return &MTProtoClient{
		apiID:   apiID,
		apiHash: apiHash,
		storage: storage,
		limiter: limiter,
		metrics: m,
		logger:  logger.With().Str("component", "mtproto_client").Logger(),
	}
}

// Connect starts the client. The connection lives on a background context until
// Disconnect; ctx only bounds the wait for readiness.
func (c *MTProtoClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	client := telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: c.storage,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	errChan := make(chan error, 1)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		err := client.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
		errChan <- err
	}()

	select {
	case <-ready:
		c.client = client
		c.api = client.API()
		c.cancelFunc = cancel
		c.runDone = runDone
		c.connected = true
		c.logger.Debug().Msg("connected to Telegram")
		return nil
	case err := <-errChan:
		cancel()
		if err == nil {
			err = errors.New("client stopped before becoming ready")
		}
		return fmt.Errorf("failed to connect: %w", err)
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Disconnect stops the client and waits, bounded by ctx, for it to shut down.
// Multiple calls are safe.
func (c *MTProtoClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancelFunc
	runDone := c.runDone
	c.connected = false
	c.client = nil
	c.api = nil
	c.cancelFunc = nil
	c.runDone = nil
	c.mu.Unlock()

	cancel()

	select {
	case <-runDone:
		c.logger.Debug().Msg("client stopped gracefully")
	case <-ctx.Done():
		c.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
	}

	return nil
}

func (c *MTProtoClient) state() (*telegram.Client, *tg.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, nil, ErrNotConnected
	}
	return c.client, c.api, nil
}

// invoke applies rate limiting and records the call
func (c *MTProtoClient) invoke(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	start := time.Now()
	err := fn(ctx)
	c.metrics.RecordRemoteCall(method, time.Since(start).Seconds(), err)
	return err
}

func (c *MTProtoClient) IsAuthorized(ctx context.Context) (bool, error) {
	client, _, err := c.state()
	if err != nil {
		return false, err
	}

	var status *auth.Status
	err = c.invoke(ctx, "auth.status", func(ctx context.Context) error {
		var err error
		status, err = client.Auth().Status(ctx)
		return err
	})
	if err != nil {
		return false, err
	}

	return status.Authorized, nil
}

func (c *MTProtoClient) RequestCode(ctx context.Context, phone string) error {
	client, _, err := c.state()
	if err != nil {
		return err
	}

	var hash string
	err = c.invoke(ctx, "auth.sendCode", func(ctx context.Context) error {
		sent, err := client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
		if err != nil {
			return err
		}
		hash, err = phoneCodeHash(sent)
		return err
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.phoneCodeHash = hash
	c.mu.Unlock()

	return nil
}

// phoneCodeHash extracts the hash SignIn must echo back
func phoneCodeHash(sent any) (string, error) {
	switch s := sent.(type) {
	case *tg.AuthSentCode:
		return s.PhoneCodeHash, nil
	default:
		return "", fmt.Errorf("unexpected sent code type %T", sent)
	}
}

func (c *MTProtoClient) SignIn(ctx context.Context, phone, code string) entities.SignInResult {
	client, _, err := c.state()
	if err != nil {
		return entities.Failed(err)
	}

	c.mu.Lock()
	hash := c.phoneCodeHash
	c.mu.Unlock()
	if hash == "" {
		return entities.Failed(errors.New("login code was not requested"))
	}

	err = c.invoke(ctx, "auth.signIn", func(ctx context.Context) error {
		_, err := client.Auth().SignIn(ctx, phone, code, hash)
		return err
	})

	return classifySignIn(err)
}

func (c *MTProtoClient) SignInWithPassword(ctx context.Context, password string) entities.SignInResult {
	client, _, err := c.state()
	if err != nil {
		return entities.Failed(err)
	}

	err = c.invoke(ctx, "auth.checkPassword", func(ctx context.Context) error {
		_, err := client.Auth().Password(ctx, password)
		return err
	})

	return classifyPassword(err)
}

// classifySignIn turns the code step error into a tagged result
func classifySignIn(err error) entities.SignInResult {
	switch {
	case err == nil:
		return entities.Accepted()
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		return entities.NeedsSecondFactor()
	case tgerr.Is(err, "PHONE_CODE_INVALID", "PHONE_CODE_EMPTY"):
		return entities.InvalidCode()
	default:
		return entities.Failed(err)
	}
}

// classifyPassword turns the 2FA step error into a tagged result
func classifyPassword(err error) entities.SignInResult {
	switch {
	case err == nil:
		return entities.Accepted()
	case errors.Is(err, auth.ErrPasswordInvalid):
		return entities.InvalidPassword()
	default:
		return entities.Failed(err)
	}
}

// ExportCredential returns the current session as a portable string
func (c *MTProtoClient) ExportCredential(ctx context.Context) (string, error) {
	return c.storage.ExportSession(ctx)
}

func (c *MTProtoClient) Conversations(ctx context.Context, limit int, yield func(entities.RemoteConversation) error) error {
	return c.walkDialogs(ctx, limit, func(d *tg.Dialog, idx *peerIndex) (bool, error) {
		conv, ok := idx.conversation(d)
		if !ok {
			return false, nil
		}
		return false, yield(conv)
	})
}

func (c *MTProtoClient) Messages(ctx context.Context, chatID int64, limit int, yield func(entities.RemoteMessage) error) error {
	_, api, err := c.state()
	if err != nil {
		return err
	}

	peer, err := c.resolvePeer(ctx, chatID)
	if err != nil {
		return err
	}

	var res tg.MessagesMessagesClass
	err = c.invoke(ctx, "messages.getHistory", func(ctx context.Context) error {
		var err error
		res, err = api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:  peer,
			Limit: limit,
		})
		return err
	})
	if err != nil {
		return err
	}

	messages, users, chats := historyPage(res)
	idx := newPeerIndex(users, chats)

	var selfID int64
	if needsSelf(messages) {
		self, err := c.selfUser(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Msg("failed to resolve self user")
		} else {
			idx.addUser(self)
			selfID = self.ID
		}
	}

	for _, m := range messages {
		rm, ok := idx.remoteMessage(m, selfID)
		if !ok {
			continue
		}
		if err := yield(rm); err != nil {
			return err
		}
	}

	return nil
}

func historyPage(res tg.MessagesMessagesClass) ([]tg.MessageClass, []tg.UserClass, []tg.ChatClass) {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return r.Messages, r.Users, r.Chats
	case *tg.MessagesMessagesSlice:
		return r.Messages, r.Users, r.Chats
	case *tg.MessagesChannelMessages:
		return r.Messages, r.Users, r.Chats
	default:
		return nil, nil, nil
	}
}

// needsSelf reports whether an outgoing message without an author is present
func needsSelf(messages []tg.MessageClass) bool {
	for _, m := range messages {
		switch msg := m.(type) {
		case *tg.Message:
			if msg.Out && msg.FromID == nil {
				return true
			}
		case *tg.MessageService:
			if msg.Out && msg.FromID == nil {
				return true
			}
		}
	}
	return false
}

func (c *MTProtoClient) selfUser(ctx context.Context) (*tg.User, error) {
	c.mu.Lock()
	self := c.self
	c.mu.Unlock()
	if self != nil {
		return self, nil
	}

	_, api, err := c.state()
	if err != nil {
		return nil, err
	}

	err = c.invoke(ctx, "users.getUsers", func(ctx context.Context) error {
		users, err := api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}})
		if err != nil {
			return err
		}
		for _, u := range users {
			if user, ok := u.(*tg.User); ok {
				self = user
				return nil
			}
		}
		return errors.New("self user not returned")
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.self = self
	c.mu.Unlock()

	return self, nil
}

// resolvePeer maps a signed chat id to a request peer. Basic groups need no
// access hash; users and channels are looked up among the account's dialogs.
func (c *MTProtoClient) resolvePeer(ctx context.Context, chatID int64) (tg.InputPeerClass, error) {
	if kind, id := unmarkPeer(chatID); kind == peerChat {
		return &tg.InputPeerChat{ChatID: id}, nil
	}

	var found tg.InputPeerClass
	err := c.walkDialogs(ctx, peerScanLimit, func(d *tg.Dialog, idx *peerIndex) (bool, error) {
		if id, ok := markPeer(d.Peer); !ok || id != chatID {
			return false, nil
		}
		peer, ok := idx.inputPeer(d.Peer)
		if !ok {
			return false, nil
		}
		found = peer
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("chat %d not found", chatID)
	}

	return found, nil
}

type dialogsPage struct {
	dialogs  []tg.DialogClass
	messages []tg.MessageClass
	users    []tg.UserClass
	chats    []tg.ChatClass
	// total is -1 when the response holds every dialog
	total int
}

func newDialogsPage(res tg.MessagesDialogsClass) dialogsPage {
	switch r := res.(type) {
	case *tg.MessagesDialogs:
		return dialogsPage{dialogs: r.Dialogs, messages: r.Messages, users: r.Users, chats: r.Chats, total: -1}
	case *tg.MessagesDialogsSlice:
		return dialogsPage{dialogs: r.Dialogs, messages: r.Messages, users: r.Users, chats: r.Chats, total: r.Count}
	default:
		return dialogsPage{total: -1}
	}
}

// walkDialogs pages through up to limit dialogs in Telegram's order until fn stops it
func (c *MTProtoClient) walkDialogs(ctx context.Context, limit int, fn func(d *tg.Dialog, idx *peerIndex) (bool, error)) error {
	_, api, err := c.state()
	if err != nil {
		return err
	}

	var (
		offsetDate int
		offsetID   int
		offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}
		seen       int
	)

	for seen < limit {
		batch := min(limit-seen, dialogBatchSize)

		var res tg.MessagesDialogsClass
		err := c.invoke(ctx, "messages.getDialogs", func(ctx context.Context) error {
			var err error
			res, err = api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
				OffsetDate: offsetDate,
				OffsetID:   offsetID,
				OffsetPeer: offsetPeer,
				Limit:      batch,
			})
			return err
		})
		if err != nil {
			return err
		}

		page := newDialogsPage(res)
		idx := newPeerIndex(page.users, page.chats)

		var last *tg.Dialog
		for _, dc := range page.dialogs {
			d, ok := dc.(*tg.Dialog)
			if !ok {
				continue
			}
			last = d
			stop, err := fn(d, idx)
			if err != nil {
				return err
			}
			seen++
			if stop || seen >= limit {
				return nil
			}
		}

		if page.total < 0 || last == nil || seen >= page.total || len(page.dialogs) < batch {
			return nil
		}

		next, ok := idx.inputPeer(last.Peer)
		if !ok {
			return nil
		}
		offsetPeer = next
		offsetID = last.TopMessage
		offsetDate = messageDate(page.messages, last.Peer, last.TopMessage)
	}

	return nil
}

// Ensure MTProtoClient implements deps.RemoteClient interface
var _ deps.RemoteClient = (*MTProtoClient)(nil)
