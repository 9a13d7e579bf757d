package fulfillment

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

func TestTryTransition(t *testing.T) {
	cases := []struct {
		name    string
		current domain.OrderStatus
		event   domain.OrderEvent
		want    domain.OrderStatus
		wantErr bool
	}{
		{"pending start", domain.StatusPending, domain.EventStartProcessing, domain.StatusProcessing, false},
		{"pending fail", domain.StatusPending, domain.EventFulfillmentFailed, domain.StatusFailed, false},
		{"pending payment confirmed", domain.StatusPending, domain.EventPaymentConfirmed, "", true},
		{"pending payment rejected", domain.StatusPending, domain.EventPaymentRejected, "", true},
		{"processing confirmed", domain.StatusProcessing, domain.EventPaymentConfirmed, domain.StatusCompleted, false},
		{"processing rejected", domain.StatusProcessing, domain.EventPaymentRejected, domain.StatusFailed, false},
		{"processing fail", domain.StatusProcessing, domain.EventFulfillmentFailed, domain.StatusFailed, false},
		{"processing duplicate start", domain.StatusProcessing, domain.EventStartProcessing, "", true},
		{"completed confirmed", domain.StatusCompleted, domain.EventPaymentConfirmed, "", true},
		{"completed start", domain.StatusCompleted, domain.EventStartProcessing, "", true},
		{"failed rejected", domain.StatusFailed, domain.EventPaymentRejected, "", true},
		{"failed fail", domain.StatusFailed, domain.EventFulfillmentFailed, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := TryTransition(tc.current, tc.event)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if next != tc.want {
				t.Errorf("expected %s, got %s", tc.want, next)
			}
		})
	}
}

// Random event sequences must never produce a path outside
// Pending -> Processing -> {Completed | Failed}, and terminal statuses must
// never transition again.
func TestTransitionGraphIsForwardOnly(t *testing.T) {
	events := []domain.OrderEvent{
		domain.EventStartProcessing,
		domain.EventPaymentConfirmed,
		domain.EventPaymentRejected,
		domain.EventFulfillmentFailed,
	}
	rank := map[domain.OrderStatus]int{
		domain.StatusPending:    0,
		domain.StatusProcessing: 1,
		domain.StatusCompleted:  2,
		domain.StatusFailed:     2,
	}

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 1000; run++ {
		status := domain.StatusPending
		for step := 0; step < 20; step++ {
			event := events[rng.Intn(len(events))]
			next, err := TryTransition(status, event)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Fatalf("unexpected error kind: %v", err)
				}
				continue
			}
			if status.Terminal() {
				t.Fatalf("terminal status %s transitioned to %s on %s", status, next, event)
			}
			if rank[next] <= rank[status] {
				t.Fatalf("non-forward transition %s -> %s on %s", status, next, event)
			}
			status = next
		}
	}
}

func TestTryTransitionIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		next, err := TryTransition(domain.StatusPending, domain.EventStartProcessing)
		if err != nil || next != domain.StatusProcessing {
			t.Fatalf("run %d: got (%s, %v)", i, next, err)
		}
	}
}
