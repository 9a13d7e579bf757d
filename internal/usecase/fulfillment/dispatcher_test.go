package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/inmem"
	"go.uber.org/zap"
)

func TestDispatcherProcessesBothChannels(t *testing.T) {
	broker := inmem.NewInMemoryBroker()
	store := inmem.NewInMemoryOrderStore()
	guard := NewLeaseGuard(store, time.Minute, zap.NewNop())

	dispatcher := NewDispatcher(2, 2, ConsumerDeps{
		Broker: broker,
		Store:  store,
		Guard:  guard,
	}, ConsumerOptions{
		MaxAttempts:   20,
		Backoff:       BackoffPolicy{Base: time.Millisecond, Cap: 5 * time.Millisecond},
		InFlightDelay: time.Millisecond,
	}, zap.NewNop())

	ctx := context.Background()
	const orders = 10
	payload, _ := json.Marshal(domain.PaymentResult{Result: domain.PaymentResultConfirmed})

	// Publish payments alongside creations: workers race, out-of-order
	// deliveries are expected and must still converge.
	for i := 0; i < orders; i++ {
		orderID := fmt.Sprintf("order-%d", i)
		if err := broker.Publish(ctx, domain.OrderQueue, domain.QueueMessage{
			OrderID:      orderID,
			Payload:      json.RawMessage(`{}`),
			AttemptCount: 1,
		}); err != nil {
			t.Fatalf("publish order: %v", err)
		}
		if err := broker.Publish(ctx, domain.PaymentQueue, domain.QueueMessage{
			OrderID:      orderID,
			Payload:      payload,
			AttemptCount: 1,
		}); err != nil {
			t.Fatalf("publish payment: %v", err)
		}
	}

	dispatcher.Start(ctx)
	defer dispatcher.Drain()

	deadline := time.Now().Add(5 * time.Second)
	for {
		completed := 0
		for i := 0; i < orders; i++ {
			order, err := store.GetOrderByID(ctx, fmt.Sprintf("order-%d", i))
			if err == nil && order.Status == domain.StatusCompleted {
				completed++
			}
		}
		if completed == orders {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d/%d orders completed before deadline", completed, orders)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Every order saw exactly one start and one completion write.
	for i := 0; i < orders; i++ {
		order, _ := store.GetOrderByID(ctx, fmt.Sprintf("order-%d", i))
		if order.Version != 3 {
			t.Errorf("order-%d: expected v3, got v%d", i, order.Version)
		}
	}
}

func TestDispatcherDrainWaitsForInFlightWork(t *testing.T) {
	broker := inmem.NewInMemoryBroker()
	store := inmem.NewInMemoryOrderStore()
	guard := NewLeaseGuard(store, time.Minute, zap.NewNop())

	slow := &slowCallout{duration: 50 * time.Millisecond}
	dispatcher := NewDispatcher(1, 1, ConsumerDeps{
		Broker:  broker,
		Store:   store,
		Guard:   guard,
		Callout: slow,
	}, ConsumerOptions{}, zap.NewNop())

	ctx := context.Background()
	if err := broker.Publish(ctx, domain.OrderQueue, domain.QueueMessage{
		OrderID:      "slow-order",
		Payload:      json.RawMessage(`{}`),
		AttemptCount: 1,
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	dispatcher.Start(ctx)
	time.Sleep(10 * time.Millisecond) // let the worker pick the delivery up
	dispatcher.Drain()

	// Drain returned, so the in-flight delivery must be fully settled and its
	// lease released.
	order, err := store.GetOrderByID(ctx, "slow-order")
	if err != nil {
		t.Fatalf("order not persisted after drain: %v", err)
	}
	if order.Status != domain.StatusProcessing {
		t.Errorf("expected PROCESSING after drain, got %s", order.Status)
	}
	if guard.InFlight() != 0 {
		t.Errorf("drain left %d leases held", guard.InFlight())
	}
}

type slowCallout struct {
	duration time.Duration
}

func (s *slowCallout) ProcessOrder(ctx context.Context, msg domain.QueueMessage) error {
	time.Sleep(s.duration)
	return nil
}

func (s *slowCallout) ProcessPayment(ctx context.Context, msg domain.QueueMessage) error {
	time.Sleep(s.duration)
	return nil
}
