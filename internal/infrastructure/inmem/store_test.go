package inmem

import (
	"context"
	"errors"
	"testing"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

func TestInMemoryOrderStoreCreateDefaults(t *testing.T) {
	store := NewInMemoryOrderStore()
	ctx := context.Background()

	if err := store.CreateOrder(ctx, &domain.Order{ID: "o1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	order, err := store.GetOrderByID(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Status != domain.StatusPending || order.Version != 1 {
		t.Errorf("expected (PENDING, v1), got (%s, v%d)", order.Status, order.Version)
	}

	if err := store.CreateOrder(ctx, &domain.Order{ID: "o1"}); !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("duplicate create: expected ErrVersionConflict, got %v", err)
	}
}

func TestInMemoryOrderStoreGetMissing(t *testing.T) {
	store := NewInMemoryOrderStore()

	if _, err := store.GetOrderByID(context.Background(), "nope"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestInMemoryOrderStoreCompareAndSet(t *testing.T) {
	store := NewInMemoryOrderStore()
	ctx := context.Background()

	if err := store.CreateOrder(ctx, &domain.Order{ID: "o1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.CompareAndSetStatus(ctx, "o1", 1, domain.StatusProcessing, ""); err != nil {
		t.Fatalf("cas: %v", err)
	}

	// Stale version loses.
	if err := store.CompareAndSetStatus(ctx, "o1", 1, domain.StatusCompleted, ""); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	if err := store.CompareAndSetStatus(ctx, "missing", 1, domain.StatusProcessing, ""); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := store.CompareAndSetStatus(ctx, "o1", 2, domain.StatusFailed, "payment rejected"); err != nil {
		t.Fatalf("cas to failed: %v", err)
	}

	order, _ := store.GetOrderByID(ctx, "o1")
	if order.Status != domain.StatusFailed || order.Version != 3 || order.LastError != "payment rejected" {
		t.Errorf("unexpected order: %+v", order)
	}
}

func TestInMemoryOrderStoreReturnsCopies(t *testing.T) {
	store := NewInMemoryOrderStore()
	ctx := context.Background()

	store.CreateOrder(ctx, &domain.Order{ID: "o1"})
	order, _ := store.GetOrderByID(ctx, "o1")
	order.Status = domain.StatusCompleted

	fresh, _ := store.GetOrderByID(ctx, "o1")
	if fresh.Status != domain.StatusPending {
		t.Errorf("caller mutation leaked into the store: %s", fresh.Status)
	}
}
