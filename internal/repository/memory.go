package repository

import (
	"context"
	"sync"

	"autoorder/internal/domain"
)

// MemoryStore is the volatile in-memory order registry. Orders are stored by
// value and returned as copies; they are never deleted, terminal orders stay
// queryable for inspection.
type MemoryStore struct {
	mu         sync.RWMutex
	ordersByID map[string]domain.Order
	// insertion order, so listings are stable
	ids []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ordersByID: make(map[string]domain.Order)}
}

var _ OrderRepository = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ordersByID[o.OrderID]; ok {
		return ErrAlreadyExists
	}
	m.ordersByID[o.OrderID] = *o
	m.ids = append(m.ids, o.OrderID)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

// Mutate applies fn to a copy of the order under the write lock and persists
// the result. Concurrent logical flows (poll, webhook, delivery timer) all
// funnel through here, which is what makes their pre-write checks safe.
func (m *MemoryStore) Mutate(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(&o); err != nil {
		return nil, err
	}
	m.ordersByID[id] = o
	cp := o
	return &cp, nil
}

func (m *MemoryStore) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, id := range m.ids {
		if o := m.ordersByID[id]; o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}
