package business

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	linkerrors "github.com/Conte777/tgviewer/internal/domain/link/errors"
	"github.com/Conte777/tgviewer/internal/domain/link/repository/memory"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

// mockRemoteClient is a mock implementation of deps.RemoteClient
type mockRemoteClient struct {
	connectFunc            func(ctx context.Context) error
	isAuthorizedFunc       func(ctx context.Context) (bool, error)
	requestCodeFunc        func(ctx context.Context, phone string) error
	signInFunc             func(ctx context.Context, phone, code string) entities.SignInResult
	signInWithPasswordFunc func(ctx context.Context, password string) entities.SignInResult
	exportCredentialFunc   func(ctx context.Context) (string, error)
	conversationsFunc      func(ctx context.Context, limit int, yield func(entities.RemoteConversation) error) error
	messagesFunc           func(ctx context.Context, chatID int64, limit int, yield func(entities.RemoteMessage) error) error

	requestCodeCalls atomic.Int32
	signInCalls      atomic.Int32
	passwordCalls    atomic.Int32
	disconnects      atomic.Int32
}

func (m *mockRemoteClient) Connect(ctx context.Context) error {
	if m.connectFunc != nil {
		return m.connectFunc(ctx)
	}
	return nil
}

func (m *mockRemoteClient) IsAuthorized(ctx context.Context) (bool, error) {
	if m.isAuthorizedFunc != nil {
		return m.isAuthorizedFunc(ctx)
	}
	return false, nil
}

func (m *mockRemoteClient) RequestCode(ctx context.Context, phone string) error {
	m.requestCodeCalls.Add(1)
	if m.requestCodeFunc != nil {
		return m.requestCodeFunc(ctx, phone)
	}
	return nil
}

func (m *mockRemoteClient) SignIn(ctx context.Context, phone, code string) entities.SignInResult {
	m.signInCalls.Add(1)
	if m.signInFunc != nil {
		return m.signInFunc(ctx, phone, code)
	}
	return entities.Accepted()
}

func (m *mockRemoteClient) SignInWithPassword(ctx context.Context, password string) entities.SignInResult {
	m.passwordCalls.Add(1)
	if m.signInWithPasswordFunc != nil {
		return m.signInWithPasswordFunc(ctx, password)
	}
	return entities.Accepted()
}

func (m *mockRemoteClient) ExportCredential(ctx context.Context) (string, error) {
	if m.exportCredentialFunc != nil {
		return m.exportCredentialFunc(ctx)
	}
	return "exported-credential", nil
}

func (m *mockRemoteClient) Conversations(ctx context.Context, limit int, yield func(entities.RemoteConversation) error) error {
	if m.conversationsFunc != nil {
		return m.conversationsFunc(ctx, limit, yield)
	}
	return nil
}

func (m *mockRemoteClient) Messages(ctx context.Context, chatID int64, limit int, yield func(entities.RemoteMessage) error) error {
	if m.messagesFunc != nil {
		return m.messagesFunc(ctx, chatID, limit, yield)
	}
	return nil
}

func (m *mockRemoteClient) Disconnect(ctx context.Context) error {
	m.disconnects.Add(1)
	return nil
}

// mockClientFactory is a mock implementation of deps.ClientFactory
type mockClientFactory struct {
	configured         bool
	newFunc            func() (deps.RemoteClient, error)
	fromCredentialFunc func(credential string) (deps.RemoteClient, error)

	newCalls            atomic.Int32
	fromCredentialCalls atomic.Int32
}

func (f *mockClientFactory) Configured() bool {
	return f.configured
}

func (f *mockClientFactory) New() (deps.RemoteClient, error) {
	f.newCalls.Add(1)
	if f.newFunc != nil {
		return f.newFunc()
	}
	return &mockRemoteClient{}, nil
}

func (f *mockClientFactory) FromCredential(credential string) (deps.RemoteClient, error) {
	f.fromCredentialCalls.Add(1)
	if f.fromCredentialFunc != nil {
		return f.fromCredentialFunc(credential)
	}
	return &mockRemoteClient{isAuthorizedFunc: func(context.Context) (bool, error) { return true, nil }}, nil
}

// mockCredentialRepository keeps credentials in memory
type mockCredentialRepository struct {
	mu      sync.Mutex
	rows    []entities.StoredCredential
	saveErr error
	calls   atomic.Int32
}

func (r *mockCredentialRepository) Save(ctx context.Context, userID int64, credential, phone string) (*entities.StoredCredential, error) {
	r.calls.Add(1)
	if r.saveErr != nil {
		return nil, r.saveErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].UserID == userID {
			r.rows[i].IsActive = false
		}
	}
	row := entities.StoredCredential{
		ID:            int64(len(r.rows) + 1),
		UserID:        userID,
		SessionString: credential,
		PhoneNumber:   phone,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}
	r.rows = append(r.rows, row)
	return &row, nil
}

func (r *mockCredentialRepository) GetActive(ctx context.Context, userID int64) (*entities.StoredCredential, error) {
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].UserID == userID && r.rows[i].IsActive {
			row := r.rows[i]
			return &row, nil
		}
	}
	return nil, linkerrors.ErrNoActiveSession
}

func (r *mockCredentialRepository) DeactivateAll(ctx context.Context, userID int64) (int64, error) {
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.rows {
		if r.rows[i].UserID == userID && r.rows[i].IsActive {
			r.rows[i].IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *mockCredentialRepository) activeCount(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID && row.IsActive {
			n++
		}
	}
	return n
}

// mockEventPublisher counts published events
type mockEventPublisher struct {
	linked   atomic.Int32
	unlinked atomic.Int32
	err      error
}

func (p *mockEventPublisher) PublishLinked(ctx context.Context, userID int64, phone string) error {
	p.linked.Add(1)
	return p.err
}

func (p *mockEventPublisher) PublishUnlinked(ctx context.Context, userID int64) error {
	p.unlinked.Add(1)
	return p.err
}

func testLinkConfig() *config.LinkConfig {
	return &config.LinkConfig{
		PendingTTL:        5 * time.Minute,
		SweepInterval:     time.Hour,
		MaxPending:        100,
		CallTimeout:       time.Second,
		ConversationLimit: 100,
	}
}

type fixture struct {
	factory *mockClientFactory
	pending *memory.PendingStore
	repo    *mockCredentialRepository
	events  *mockEventPublisher
	linker  *Linker
	viewer  *Viewer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testLinkConfig()
	m := metrics.GetDefaultMetrics()
	logger := zerolog.Nop()

	f := &fixture{
		factory: &mockClientFactory{configured: true},
		pending: memory.NewPendingStore(cfg.PendingTTL, cfg.SweepInterval, cfg.MaxPending, m, logger),
		repo:    &mockCredentialRepository{},
		events:  &mockEventPublisher{},
	}
	t.Cleanup(func() { f.pending.Close(context.Background()) })

	f.linker = NewLinker(f.factory, f.pending, f.repo, f.events, cfg, m, logger)
	f.viewer = NewViewer(f.factory, f.repo, f.events, cfg, m, logger)
	return f
}

// withClient makes the factory hand out client for new handshakes
func (f *fixture) withClient(client *mockRemoteClient) {
	f.factory.newFunc = func() (deps.RemoteClient, error) { return client, nil }
}

func (f *fixture) hasPending(userID int64, phone string) bool {
	link, ok := f.pending.Acquire(entities.PendingKey{UserID: userID, Phone: phone})
	if ok {
		link.Release()
	}
	return ok
}
