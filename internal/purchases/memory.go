package purchases

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is the in-memory purchase store: an arena of records plus
// an append-only per-buyer index of ids. Backs the service tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	arena   []Purchase
	byBuyer map[string][]uint64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byBuyer: make(map[string][]uint64)}
}

func (m *MemoryRepository) Create(ctx context.Context, p *Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uint64(len(m.arena))
	m.arena = append(m.arena, *p)
	m.byBuyer[p.Buyer] = append(m.byBuyer[p.Buyer], p.ID)
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id uint64) (*Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id >= uint64(len(m.arena)) {
		return nil, nil
	}
	cp := m.arena[id]
	return &cp, nil
}

func (m *MemoryRepository) ListByBuyer(ctx context.Context, buyer string) ([]Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byBuyer[buyer]
	out := make([]Purchase, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.arena[id])
	}
	return out, nil
}

func (m *MemoryRepository) CountByBuyer(ctx context.Context, buyer string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.byBuyer[buyer])), nil
}

func (m *MemoryRepository) Total(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.arena)), nil
}

func (m *MemoryRepository) SetProcessed(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id >= uint64(len(m.arena)) {
		return fmt.Errorf("purchase %d missing", id)
	}
	if m.arena[id].Processed {
		return fmt.Errorf("purchase %d already processed", id)
	}
	m.arena[id].Processed = true
	return nil
}

func (m *MemoryRepository) SetCertificateMinted(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id >= uint64(len(m.arena)) {
		return fmt.Errorf("purchase %d missing", id)
	}
	if !m.arena[id].Processed || m.arena[id].CertificateMinted {
		return fmt.Errorf("purchase %d not mintable", id)
	}
	m.arena[id].CertificateMinted = true
	return nil
}
