package certificates

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is the in-memory certificate registry backing the
// service tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	arena      []Certificate
	byPurchase map[uint64]uint64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byPurchase: make(map[uint64]uint64)}
}

func (m *MemoryRepository) Create(ctx context.Context, cert *Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byPurchase[cert.PurchaseID]; exists {
		return fmt.Errorf("purchase %d already has a certificate", cert.PurchaseID)
	}
	cert.ID = uint64(len(m.arena))
	m.arena = append(m.arena, *cert)
	m.byPurchase[cert.PurchaseID] = cert.ID
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id uint64) (*Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id >= uint64(len(m.arena)) {
		return nil, nil
	}
	cp := m.arena[id]
	return &cp, nil
}

func (m *MemoryRepository) GetByPurchase(ctx context.Context, purchaseID uint64) (*Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPurchase[purchaseID]
	if !ok {
		return nil, nil
	}
	cp := m.arena[id]
	return &cp, nil
}

func (m *MemoryRepository) ListByOwner(ctx context.Context, owner string) ([]Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Certificate
	for _, cert := range m.arena {
		if cert.Owner == owner {
			out = append(out, cert)
		}
	}
	return out, nil
}

func (m *MemoryRepository) UpdateOwner(ctx context.Context, id uint64, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id >= uint64(len(m.arena)) {
		return fmt.Errorf("certificate %d missing", id)
	}
	m.arena[id].Owner = owner
	return nil
}

// Delete supports rolling back the newest certificate only; ids stay
// sequential because nothing older is ever removed.
func (m *MemoryRepository) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.arena) == 0 || id != uint64(len(m.arena))-1 {
		return fmt.Errorf("certificate %d is not the newest, cannot remove", id)
	}
	delete(m.byPurchase, m.arena[id].PurchaseID)
	m.arena = m.arena[:id]
	return nil
}

func (m *MemoryRepository) Total(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.arena)), nil
}
