package deps

import (
	"context"
	"sync"
)

// Store persists build state between runs.
type Store interface {
	// Load returns the last saved state, or nil when none exists.
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
	Close() error
}

// MemoryStore keeps state in process. The dev server and tests use it.
type MemoryStore struct {
	mu    sync.RWMutex
	state *State
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil //nolint:nilnil // nil state means no build has been saved yet.
	}
	return m.state.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s.Clone()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
