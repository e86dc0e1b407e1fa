package settings

import (
	"context"
	"sync"
)

// MemoryRepository keeps economy parameters in memory. Backs the service tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	params *EconomyParams
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Get(ctx context.Context) (*EconomyParams, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.params == nil {
		return nil, nil
	}
	cp := *m.params
	return &cp, nil
}

func (m *MemoryRepository) Save(ctx context.Context, params *EconomyParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *params
	m.params = &cp
	return nil
}
