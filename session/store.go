package session

import (
	"context"
	"sync"
)

// Store is the session lookup table. It is injected into the engine so
// tests can substitute a fake and deployments can swap in a networked
// store. Get returns (nil, nil) when the session does not exist.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Put(ctx context.Context, state *State) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryStore keeps sessions in an in-process map. Like the networked
// store, Get hands out an independent copy: callers mutate their copy and
// persist it with Put, so an abandoned turn leaves the stored state
// untouched.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*State)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*State, error) {
	m.mu.RLock()
	st, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return st.Clone()
}

func (m *MemoryStore) Put(ctx context.Context, state *State) error {
	clone, err := state.Clone()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[state.ID] = clone
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
