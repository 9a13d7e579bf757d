package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

// InMemoryOrderStore implements domain.OrderStore with the same CAS semantics
// as the postgres repository. Used by tests and the local memory mode.
type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		orders: make(map[string]domain.Order),
	}
}

func (s *InMemoryOrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("order %s already exists: %w", order.ID, domain.ErrVersionConflict)
	}

	stored := *order
	if stored.Status == "" {
		stored.Status = domain.StatusPending
	}
	if stored.Version == 0 {
		stored.Version = 1
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.orders[order.ID] = stored
	return nil
}

func (s *InMemoryOrderStore) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (s *InMemoryOrderStore) CompareAndSetStatus(ctx context.Context, orderID string, expectedVersion int64, newStatus domain.OrderStatus, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if order.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	order.Status = newStatus
	order.Version = expectedVersion + 1
	order.LastError = lastError
	order.UpdatedAt = time.Now()
	s.orders[orderID] = order
	return nil
}
