package forest

import (
	"context"
	"sync"
)

// MemoryRepository keeps virtual tree state in memory. Backs the service tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[string]VirtualTreeState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]VirtualTreeState)}
}

func (m *MemoryRepository) Get(ctx context.Context, account string) (*VirtualTreeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[account]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryRepository) Save(ctx context.Context, state *VirtualTreeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Account] = *state
	return nil
}
