package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

type capturingPublisher struct {
	published []domain.QueueMessage
	queues    []domain.QueueType
	err       error
}

func (p *capturingPublisher) Publish(ctx context.Context, queue domain.QueueType, msg domain.QueueMessage) error {
	if p.err != nil {
		return p.err
	}
	p.queues = append(p.queues, queue)
	p.published = append(p.published, msg)
	return nil
}

func TestSubmitOrderEvent(t *testing.T) {
	pub := &capturingPublisher{}
	uc, err := NewDefaultSubmitUsecase(pub)
	if err != nil {
		t.Fatalf("NewDefaultSubmitUsecase: %v", err)
	}

	if err := uc.SubmitOrderEvent(context.Background(), "O1", []byte(`{"items":[]}`)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.published))
	}
	msg := pub.published[0]
	if pub.queues[0] != domain.OrderQueue {
		t.Errorf("expected order queue, got %s", pub.queues[0])
	}
	if msg.OrderID != "O1" || msg.AttemptCount != 1 {
		t.Errorf("unexpected envelope: %+v", msg)
	}
}

func TestSubmitPaymentEvent(t *testing.T) {
	pub := &capturingPublisher{}
	uc, _ := NewDefaultSubmitUsecase(pub)

	if err := uc.SubmitPaymentEvent(context.Background(), "O1", []byte(`{"result":"confirmed"}`)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if pub.queues[0] != domain.PaymentQueue {
		t.Errorf("expected payment queue, got %s", pub.queues[0])
	}
}

func TestSubmitRequiresOrderID(t *testing.T) {
	uc, _ := NewDefaultSubmitUsecase(&capturingPublisher{})

	if err := uc.SubmitOrderEvent(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty order id")
	}
}

func TestSubmitNewOrderGeneratesID(t *testing.T) {
	pub := &capturingPublisher{}
	uc, _ := NewDefaultSubmitUsecase(pub)

	orderID, err := uc.SubmitNewOrder(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(orderID) != 15 {
		t.Errorf("expected 15-char id, got %q", orderID)
	}
	if pub.published[0].OrderID != orderID {
		t.Errorf("published id %q does not match returned id %q", pub.published[0].OrderID, orderID)
	}
}

func TestSubmitPropagatesPublishFailure(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("broker down")}
	uc, _ := NewDefaultSubmitUsecase(pub)

	if err := uc.SubmitOrderEvent(context.Background(), "O1", nil); err == nil {
		t.Fatal("expected publish failure to propagate")
	}
}
