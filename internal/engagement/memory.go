package engagement

import (
	"context"
	"sync"
)

// MemoryRepository keeps engagement state and balances in memory for the
// service tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	states   map[string]EngagementState
	balances map[string]PointsBalance
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		states:   make(map[string]EngagementState),
		balances: make(map[string]PointsBalance),
	}
}

func (m *MemoryRepository) GetState(ctx context.Context, account string) (*EngagementState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[account]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryRepository) GetBalance(ctx context.Context, account string) (*PointsBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	balance, ok := m.balances[account]
	if !ok {
		return nil, nil
	}
	return &balance, nil
}

func (m *MemoryRepository) ApplyAction(ctx context.Context, state *EngagementState, balance *PointsBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Account] = *state
	m.balances[balance.Account] = *balance
	return nil
}

func (m *MemoryRepository) SaveBalance(ctx context.Context, balance *PointsBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balance.Account] = *balance
	return nil
}
