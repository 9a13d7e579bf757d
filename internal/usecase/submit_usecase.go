package usecase

import (
	"context"
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

// SubmitUsecase is the single inbound surface of the pipeline. Both submits
// are fire-and-forget: callers observe the eventual outcome by reading the
// order's status and lastError from the store, never through these calls.
type SubmitUsecase interface {
	SubmitOrderEvent(ctx context.Context, orderID string, payload []byte) error
	SubmitPaymentEvent(ctx context.Context, orderID string, payload []byte) error
	SubmitNewOrder(ctx context.Context, payload []byte) (string, error)
}

type DefaultSubmitUsecase struct {
	publisher domain.PublisherPort
	newID     func() string
}

func NewDefaultSubmitUsecase(publisher domain.PublisherPort) (*DefaultSubmitUsecase, error) {
	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return nil, fmt.Errorf("failed to init id generator: %w", err)
	}
	return &DefaultSubmitUsecase{
		publisher: publisher,
		newID:     idGenerator,
	}, nil
}

func (uc *DefaultSubmitUsecase) SubmitOrderEvent(ctx context.Context, orderID string, payload []byte) error {
	return uc.publish(ctx, domain.OrderQueue, orderID, payload)
}

func (uc *DefaultSubmitUsecase) SubmitPaymentEvent(ctx context.Context, orderID string, payload []byte) error {
	return uc.publish(ctx, domain.PaymentQueue, orderID, payload)
}

// SubmitNewOrder generates the order id and submits the creation event.
func (uc *DefaultSubmitUsecase) SubmitNewOrder(ctx context.Context, payload []byte) (string, error) {
	orderID := uc.newID()
	if err := uc.SubmitOrderEvent(ctx, orderID, payload); err != nil {
		return "", err
	}
	return orderID, nil
}

func (uc *DefaultSubmitUsecase) publish(ctx context.Context, queue domain.QueueType, orderID string, payload []byte) error {
	if orderID == "" {
		return fmt.Errorf("order id is required")
	}
	msg := domain.QueueMessage{
		OrderID:      orderID,
		QueueType:    queue,
		Payload:      payload,
		AttemptCount: 1,
	}
	if err := uc.publisher.Publish(ctx, queue, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}
