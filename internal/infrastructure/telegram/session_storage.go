package telegram

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
)

// MemorySessionStorage implements session.Storage in memory so a session can be
// exported as a portable credential instead of living in a file
type MemorySessionStorage struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemorySessionStorage creates a storage holding data; nil means a new session
func NewMemorySessionStorage(data []byte) *MemorySessionStorage {
	return &MemorySessionStorage{data: append([]byte(nil), data...)}
}

// LoadSession returns session.ErrNotFound until a session was stored
func (s *MemorySessionStorage) LoadSession(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// StoreSession replaces the stored session
func (s *MemorySessionStorage) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = append([]byte(nil), data...)
	return nil
}

// ExportSession encodes the stored session as a portable credential string
func (s *MemorySessionStorage) ExportSession(ctx context.Context) (string, error) {
	data, err := s.LoadSession(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ImportSession decodes a credential produced by ExportSession
func ImportSession(credential string) (*MemorySessionStorage, error) {
	data, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return nil, fmt.Errorf("invalid session credential: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("invalid session credential: empty session")
	}
	return NewMemorySessionStorage(data), nil
}

// Ensure MemorySessionStorage implements session.Storage interface
var _ session.Storage = (*MemorySessionStorage)(nil)
