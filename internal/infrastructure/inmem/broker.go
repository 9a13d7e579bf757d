package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

const queueCapacity = 1024

// DeadLetteredMessage is a parked delivery with the reason it was given up on.
type DeadLetteredMessage struct {
	Message domain.QueueMessage
	Reason  string
}

// InMemoryBroker implements domain.BrokerPort over channels. Requeue honors
// the delay and increments the attempt count exactly like the Kafka adapter,
// so the retry/backoff paths are testable without a broker.
type InMemoryBroker struct {
	mu      sync.Mutex
	queues  map[domain.QueueType]chan domain.QueueMessage
	pending map[string]pendingDelivery
	dead    []DeadLetteredMessage
	timers  sync.WaitGroup
}

type pendingDelivery struct {
	queue domain.QueueType
	msg   domain.QueueMessage
}

func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		queues: map[domain.QueueType]chan domain.QueueMessage{
			domain.OrderQueue:   make(chan domain.QueueMessage, queueCapacity),
			domain.PaymentQueue: make(chan domain.QueueMessage, queueCapacity),
		},
		pending: make(map[string]pendingDelivery),
	}
}

func (b *InMemoryBroker) Publish(ctx context.Context, queue domain.QueueType, msg domain.QueueMessage) error {
	ch, ok := b.queues[queue]
	if !ok {
		return fmt.Errorf("unknown queue %q", queue)
	}
	msg.QueueType = queue
	select {
	case ch <- msg:
		return nil
	default:
		return fmt.Errorf("queue %q is full", queue)
	}
}

func (b *InMemoryBroker) Consume(ctx context.Context, queue domain.QueueType) (*domain.Delivery, error) {
	ch, ok := b.queues[queue]
	if !ok {
		return nil, fmt.Errorf("unknown queue %q", queue)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-ch:
		token := uuid.NewString()
		b.mu.Lock()
		b.pending[token] = pendingDelivery{queue: queue, msg: msg}
		b.mu.Unlock()
		return &domain.Delivery{Token: token, Message: msg}, nil
	}
}

func (b *InMemoryBroker) Ack(ctx context.Context, token string) error {
	_, err := b.settle(token)
	return err
}

func (b *InMemoryBroker) Requeue(ctx context.Context, token string, delay time.Duration) error {
	p, err := b.settle(token)
	if err != nil {
		return err
	}

	msg := p.msg
	msg.AttemptCount++

	if delay <= 0 {
		return b.Publish(ctx, p.queue, msg)
	}

	b.timers.Add(1)
	time.AfterFunc(delay, func() {
		defer b.timers.Done()
		_ = b.Publish(context.Background(), p.queue, msg)
	})
	return nil
}

func (b *InMemoryBroker) DeadLetter(ctx context.Context, token string, reason string) error {
	p, err := b.settle(token)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.dead = append(b.dead, DeadLetteredMessage{Message: p.msg, Reason: reason})
	b.mu.Unlock()
	return nil
}

// DeadLetters returns a snapshot of parked messages.
func (b *InMemoryBroker) DeadLetters() []DeadLetteredMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DeadLetteredMessage, len(b.dead))
	copy(out, b.dead)
	return out
}

// QueueDepth reports buffered messages not yet consumed.
func (b *InMemoryBroker) QueueDepth(queue domain.QueueType) int {
	ch, ok := b.queues[queue]
	if !ok {
		return 0
	}
	return len(ch)
}

// Close waits for delayed requeues still in flight.
func (b *InMemoryBroker) Close() error {
	b.timers.Wait()
	return nil
}

func (b *InMemoryBroker) settle(token string) (pendingDelivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[token]
	if !ok {
		return pendingDelivery{}, fmt.Errorf("unknown delivery token %q", token)
	}
	delete(b.pending, token)
	return p, nil
}
