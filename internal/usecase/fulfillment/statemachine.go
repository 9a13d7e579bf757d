package fulfillment

import (
	"fmt"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

// transitions is the full lifecycle graph. Statuses only ever move forward;
// StatusCompleted and StatusFailed have no outgoing edges, which is what makes
// redelivered and out-of-order messages safe to drop.
var transitions = map[domain.OrderStatus]map[domain.OrderEvent]domain.OrderStatus{
	domain.StatusPending: {
		domain.EventStartProcessing:   domain.StatusProcessing,
		domain.EventFulfillmentFailed: domain.StatusFailed,
	},
	domain.StatusProcessing: {
		domain.EventPaymentConfirmed:  domain.StatusCompleted,
		domain.EventPaymentRejected:   domain.StatusFailed,
		domain.EventFulfillmentFailed: domain.StatusFailed,
	},
}

// TryTransition evaluates the lifecycle graph for one event. It is a pure
// function: all I/O around a transition belongs to the consumer.
func TryTransition(current domain.OrderStatus, event domain.OrderEvent) (domain.OrderStatus, error) {
	next, ok := transitions[current][event]
	if !ok {
		return "", fmt.Errorf("%w: event %s in status %s", domain.ErrInvalidTransition, event, current)
	}
	return next, nil
}
