package buffer

import (
	"context"
	"sync"
)

// TokenStore persists the access token across process invocations.
// LoadToken reports ok=false when no token has been saved.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (token string, ok bool, err error)
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	saves int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWithToken returns a MemoryStore already holding token.
func NewMemoryStoreWithToken(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.saves++
	return nil
}

func (m *MemoryStore) LoadToken(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != "", nil
}

// Saves returns how many times SaveToken has been called.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

var _ TokenStore = (*MemoryStore)(nil)
