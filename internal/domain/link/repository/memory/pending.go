package memory

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	linkerrors "github.com/Conte777/tgviewer/internal/domain/link/errors"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
	"github.com/Conte777/tgviewer/internal/utils"
)

const (
	shardCount        = 32
	disconnectTimeout = 10 * time.Second
)

// Link is a pending handshake holding a connected, unauthorized client
type Link struct {
	key    entities.PendingKey
	client deps.RemoteClient
	store  *PendingStore

	// held from Acquire until Release or Finish
	mu               sync.Mutex
	awaitingPassword bool

	createdAt time.Time
	touchedAt atomic.Int64
}

// Client returns the pending remote client
func (l *Link) Client() deps.RemoteClient {
	return l.client
}

// AwaitingPassword reports whether a previous submission asked for the 2FA password
func (l *Link) AwaitingPassword() bool {
	return l.awaitingPassword
}

// MarkAwaitingPassword records that the code was accepted pending the 2FA password
func (l *Link) MarkAwaitingPassword() {
	l.awaitingPassword = true
}

// Release unlocks the link and keeps it in the store
func (l *Link) Release() {
	l.touch(l.store.now())
	l.mu.Unlock()
}

// Finish removes the link from the store, disconnects its client and unlocks it
func (l *Link) Finish(ctx context.Context) {
	l.store.remove(l)
	l.store.disconnect(ctx, l)
	l.mu.Unlock()
}

func (l *Link) touch(t time.Time) {
	l.touchedAt.Store(t.UnixNano())
}

func (l *Link) idleSince(t time.Time) time.Duration {
	return t.Sub(time.Unix(0, l.touchedAt.Load()))
}

type shard struct {
	mu    sync.Mutex
	links map[entities.PendingKey]*Link
}

// PendingStore is a sharded in-memory table of pending links.
// Different keys never share an entry lock; shard locks cover map operations only.
type PendingStore struct {
	shards [shardCount]*shard
	count  atomic.Int64

	ttl           time.Duration
	sweepInterval time.Duration
	maxPending    int

	stop     chan struct{}
	stopOnce sync.Once

	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewPendingStore creates a pending store and starts its sweeper
func NewPendingStore(ttl, sweepInterval time.Duration, maxPending int, m *metrics.Metrics, logger zerolog.Logger) *PendingStore {
	s := newPendingStore(ttl, sweepInterval, maxPending, m, logger)
	go s.runSweeper()
	return s
}

func newPendingStore(ttl, sweepInterval time.Duration, maxPending int, m *metrics.Metrics, logger zerolog.Logger) *PendingStore {
	s := &PendingStore{
		ttl:           ttl,
		sweepInterval: sweepInterval,
		maxPending:    maxPending,
		stop:          make(chan struct{}),
		now:           time.Now,
		metrics:       m,
		logger:        logger.With().Str("component", "pending_link_store").Logger(),
	}
	for i := range s.shards {
		s.shards[i] = &shard{links: make(map[entities.PendingKey]*Link)}
	}
	return s
}

func (s *PendingStore) shardFor(key entities.PendingKey) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(key.UserID, 10)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.Phone))
	return s.shards[h.Sum32()%shardCount]
}

// Put registers client under key, disconnecting the client it replaces
func (s *PendingStore) Put(ctx context.Context, key entities.PendingKey, client deps.RemoteClient) error {
	now := s.now()
	link := &Link{key: key, client: client, store: s, createdAt: now}
	link.touch(now)

	sh := s.shardFor(key)
	sh.mu.Lock()
	prev, replacing := sh.links[key]
	if !replacing && !s.reserve() {
		sh.mu.Unlock()
		return linkerrors.ErrTooManyPending
	}
	sh.links[key] = link
	sh.mu.Unlock()

	s.reportSize()

	if replacing {
		s.logger.Debug().
			Int64("user_id", key.UserID).
			Str("phone", utils.MaskPhoneNumber(key.Phone)).
			Msg("pending link replaced")
		s.metrics.RecordPendingEviction("replaced", 1)
		s.disconnect(ctx, prev)
	}

	return nil
}

// reserve takes one slot of the table. Shards lock independently, so the cap is
// enforced on the shared counter itself.
func (s *PendingStore) reserve() bool {
	if s.maxPending <= 0 {
		s.count.Add(1)
		return true
	}
	for {
		n := s.count.Load()
		if n >= int64(s.maxPending) {
			return false
		}
		if s.count.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Acquire locks and returns the link for key
func (s *PendingStore) Acquire(key entities.PendingKey) (deps.PendingHandle, bool) {
	sh := s.shardFor(key)
	for {
		sh.mu.Lock()
		link, ok := sh.links[key]
		sh.mu.Unlock()
		if !ok {
			return nil, false
		}

		link.mu.Lock()

		sh.mu.Lock()
		current := sh.links[key]
		sh.mu.Unlock()

		if current == link {
			link.touch(s.now())
			return link, true
		}
		// removed or replaced while we waited
		link.mu.Unlock()
	}
}

// Len returns the number of pending links
func (s *PendingStore) Len() int {
	return int(s.count.Load())
}

// remove deletes link only if the table still maps its key to it
func (s *PendingStore) remove(link *Link) bool {
	sh := s.shardFor(link.key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.links[link.key] != link {
		return false
	}
	delete(sh.links, link.key)
	s.count.Add(-1)
	s.reportSize()
	return true
}

func (s *PendingStore) disconnect(ctx context.Context, link *Link) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()

	if err := link.client.Disconnect(ctx); err != nil {
		s.logger.Warn().Err(err).
			Int64("user_id", link.key.UserID).
			Str("phone", utils.MaskPhoneNumber(link.key.Phone)).
			Msg("failed to disconnect pending client")
	}
}

// Sweep evicts links idle longer than the TTL that no submission currently holds
func (s *PendingStore) Sweep(ctx context.Context) int {
	now := s.now()
	var expired []*Link

	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, link := range sh.links {
			if link.idleSince(now) <= s.ttl {
				continue
			}
			if !link.mu.TryLock() {
				continue
			}
			delete(sh.links, key)
			s.count.Add(-1)
			expired = append(expired, link)
		}
		sh.mu.Unlock()
	}

	for _, link := range expired {
		s.logger.Debug().
			Int64("user_id", link.key.UserID).
			Str("phone", utils.MaskPhoneNumber(link.key.Phone)).
			Dur("age", now.Sub(link.createdAt)).
			Msg("pending link expired")
		s.disconnect(ctx, link)
		link.mu.Unlock()
	}

	if len(expired) > 0 {
		s.reportSize()
		s.metrics.RecordPendingEviction("expired", len(expired))
		s.logger.Info().Int("removed", len(expired)).Msg("evicted expired pending links")
	}

	return len(expired)
}

// Stop stops the sweeper goroutine
func (s *PendingStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Close stops the sweeper and disconnects every pending client
func (s *PendingStore) Close(ctx context.Context) int {
	s.Stop()

	var all []*Link
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, link := range sh.links {
			delete(sh.links, key)
			all = append(all, link)
		}
		sh.mu.Unlock()
	}
	s.count.Store(0)
	s.reportSize()

	for _, link := range all {
		s.disconnect(ctx, link)
	}
	s.metrics.RecordPendingEviction("shutdown", len(all))

	return len(all)
}

func (s *PendingStore) runSweeper() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.sweepInterval).
		Dur("ttl", s.ttl).
		Msg("pending link sweeper started")

	for {
		select {
		case <-s.stop:
			s.logger.Info().Msg("pending link sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

func (s *PendingStore) reportSize() {
	s.metrics.SetPendingLinks(s.Len())
}

var _ deps.PendingStore = (*PendingStore)(nil)
