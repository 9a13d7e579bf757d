package domain

import (
	"context"
	"time"
)

// Delivery is one at-least-once delivery of a QueueMessage. Token is the
// broker-assigned handle used to settle exactly this delivery.
type Delivery struct {
	Token 	string
	Message QueueMessage
}

type PublisherPort interface {
	Publish(ctx context.Context, queue QueueType, msg QueueMessage) error
}

type BrokerPort interface {
	PublisherPort

	// Consume blocks until a message is available on the queue or ctx is done.
	Consume(ctx context.Context, queue QueueType) (*Delivery, error)
	Ack(ctx context.Context, token string) error
	Requeue(ctx context.Context, token string, delay time.Duration) error
	DeadLetter(ctx context.Context, token string, reason string) error
}
