package domain

import "context"

// OrderStore is the single source of truth for order state. Concurrent writers
// are serialized through the version check in CompareAndSetStatus.
type OrderStore interface {
	// CreateOrder persists a new order in StatusPending with Version 1.
	CreateOrder(ctx context.Context, order *Order) error

	// GetOrderByID returns ErrOrderNotFound when no such order exists.
	GetOrderByID(ctx context.Context, orderID string) (*Order, error)

	// CompareAndSetStatus advances the order to newStatus and Version
	// expectedVersion+1 in a single write. It returns ErrVersionConflict when
	// another writer raced, ErrOrderNotFound when the order does not exist.
	// lastError is persisted only on a transition to StatusFailed.
	CompareAndSetStatus(ctx context.Context, orderID string, expectedVersion int64, newStatus OrderStatus, lastError string) error
}
