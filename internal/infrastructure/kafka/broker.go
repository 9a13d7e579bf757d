package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"go.uber.org/zap"
)

type Config struct {
	Brokers         []string
	GroupID         string
	OrderTopic      string
	PaymentTopic    string
	DeadLetterTopic string
}

// KafkaBroker adapts kafka-go to domain.BrokerPort. One consumer group reader
// per channel; acknowledgment maps to an offset commit. Kafka has no native
// delayed redelivery, so Requeue republishes the envelope with an incremented
// attempt count after the delay and only then commits the original offset.
type KafkaBroker struct {
	writer  *kafka.Writer
	readers map[domain.QueueType]*kafka.Reader
	topics  map[domain.QueueType]string
	dlq     string
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]pendingDelivery
	delayed sync.WaitGroup
}

type pendingDelivery struct {
	queue domain.QueueType
	msg   domain.QueueMessage
	raw   kafka.Message
}

func NewKafkaBroker(cfg Config, logger *zap.Logger) *KafkaBroker {
	if cfg.OrderTopic == "" {
		cfg.OrderTopic = "order-events"
	}
	if cfg.PaymentTopic == "" {
		cfg.PaymentTopic = "payment-events"
	}
	if cfg.DeadLetterTopic == "" {
		cfg.DeadLetterTopic = "fulfillment-dlq"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topics := map[domain.QueueType]string{
		domain.OrderQueue:   cfg.OrderTopic,
		domain.PaymentQueue: cfg.PaymentTopic,
	}

	readers := make(map[domain.QueueType]*kafka.Reader, len(topics))
	for queue, topic := range topics {
		readers[queue] = kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   topic,
			GroupID: cfg.GroupID,
		})
	}

	return &KafkaBroker{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		readers: readers,
		topics:  topics,
		dlq:     cfg.DeadLetterTopic,
		logger:  logger,
		pending: make(map[string]pendingDelivery),
	}
}

func (b *KafkaBroker) Publish(ctx context.Context, queue domain.QueueType, msg domain.QueueMessage) error {
	topic, ok := b.topics[queue]
	if !ok {
		return fmt.Errorf("unknown queue %q", queue)
	}
	msg.QueueType = queue

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return b.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(msg.OrderID),
		Value: value,
		Time:  time.Now(),
	})
}

// Consume blocks on the next fetch. Envelopes that fail to decode are
// dead-lettered inline and the fetch continues: handing them to a consumer
// could never succeed.
func (b *KafkaBroker) Consume(ctx context.Context, queue domain.QueueType) (*domain.Delivery, error) {
	reader, ok := b.readers[queue]
	if !ok {
		return nil, fmt.Errorf("unknown queue %q", queue)
	}

	for {
		raw, err := reader.FetchMessage(ctx)
		if err != nil {
			return nil, err
		}

		var msg domain.QueueMessage
		if err := json.Unmarshal(raw.Value, &msg); err != nil {
			b.logger.Error("undecodable envelope, dead-lettering",
				zap.String("topic", raw.Topic),
				zap.Int64("offset", raw.Offset),
				zap.Error(err))
			b.parkRaw(ctx, raw, fmt.Sprintf("undecodable envelope: %v", err))
			if err := reader.CommitMessages(ctx, raw); err != nil {
				return nil, err
			}
			continue
		}
		if msg.AttemptCount < 1 {
			msg.AttemptCount = 1
		}

		token := uuid.NewString()
		b.mu.Lock()
		b.pending[token] = pendingDelivery{queue: queue, msg: msg, raw: raw}
		b.mu.Unlock()

		return &domain.Delivery{Token: token, Message: msg}, nil
	}
}

func (b *KafkaBroker) Ack(ctx context.Context, token string) error {
	p, err := b.settle(token)
	if err != nil {
		return err
	}
	return b.readers[p.queue].CommitMessages(ctx, p.raw)
}

func (b *KafkaBroker) Requeue(ctx context.Context, token string, delay time.Duration) error {
	p, err := b.settle(token)
	if err != nil {
		return err
	}

	msg := p.msg
	msg.AttemptCount++

	b.delayed.Add(1)
	go func() {
		defer b.delayed.Done()
		if delay > 0 {
			time.Sleep(delay)
		}
		// Republish before committing so a crash in between redelivers the
		// original instead of losing it.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := b.Publish(ctx, p.queue, msg); err != nil {
			b.logger.Error("failed to republish delivery, offset left uncommitted",
				zap.String("order_id", msg.OrderID), zap.Error(err))
			return
		}
		if err := b.readers[p.queue].CommitMessages(ctx, p.raw); err != nil {
			b.logger.Error("failed to commit requeued delivery", zap.Error(err))
		}
	}()
	return nil
}

func (b *KafkaBroker) DeadLetter(ctx context.Context, token string, reason string) error {
	p, err := b.settle(token)
	if err != nil {
		return err
	}
	b.parkRaw(ctx, p.raw, reason)
	return b.readers[p.queue].CommitMessages(ctx, p.raw)
}

// Close drains delayed republishes and shuts the clients down.
func (b *KafkaBroker) Close() error {
	b.delayed.Wait()
	var firstErr error
	for _, reader := range b.readers {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (b *KafkaBroker) parkRaw(ctx context.Context, raw kafka.Message, reason string) {
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic: b.dlq,
		Key:   raw.Key,
		Value: raw.Value,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(reason)},
			{Key: "origin-topic", Value: []byte(raw.Topic)},
		},
		Time: time.Now(),
	})
	if err != nil {
		b.logger.Error("failed to write dead letter", zap.Error(err))
	}
}

func (b *KafkaBroker) settle(token string) (pendingDelivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[token]
	if !ok {
		return pendingDelivery{}, fmt.Errorf("unknown delivery token %q", token)
	}
	delete(b.pending, token)
	return p, nil
}
