package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/logger"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// Callout is the external business call performed while the order's lease is
// held (stock reservation, payment gateway, shipping). Its side effects must
// be idempotent per order: a crash between the callout and the status write is
// recovered by broker redelivery.
type Callout interface {
	ProcessOrder(ctx context.Context, msg domain.QueueMessage) error
	ProcessPayment(ctx context.Context, msg domain.QueueMessage) error
}

type NopCallout struct{}

func (NopCallout) ProcessOrder(ctx context.Context, msg domain.QueueMessage) error {
	return nil
}

func (NopCallout) ProcessPayment(ctx context.Context, msg domain.QueueMessage) error {
	return nil
}

// errMalformedPayload marks envelopes that can never be processed. They go to
// the dead-letter queue without touching the order.
var errMalformedPayload = errors.New("malformed message payload")

type ConsumerDeps struct {
	Broker  domain.BrokerPort
	Store   domain.OrderStore
	Guard   *LeaseGuard
	Callout Callout
	Audit   logger.OrderEventLogger
	Metrics *metrics.PipelineMetrics
	Logger  *zap.Logger
}

type ConsumerOptions struct {
	MaxAttempts   int
	Backoff       BackoffPolicy
	InFlightDelay time.Duration
}

// Consumer pulls deliveries from one channel and settles each of them:
// ack on success or a final business outcome, requeue with backoff on a
// transient failure, dead-letter when nothing else can be done.
type Consumer struct {
	queue   domain.QueueType
	broker  domain.BrokerPort
	store   domain.OrderStore
	guard   *LeaseGuard
	callout Callout
	audit   logger.OrderEventLogger
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger

	maxAttempts   int
	backoff       BackoffPolicy
	inFlightDelay time.Duration
}

func NewConsumer(queue domain.QueueType, deps ConsumerDeps, opts ConsumerOptions) *Consumer {
	if deps.Callout == nil {
		deps.Callout = NopCallout{}
	}
	if deps.Audit == nil {
		deps.Audit = logger.NopOrderEventLogger{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff.Base <= 0 {
		opts.Backoff.Base = 500 * time.Millisecond
	}
	if opts.Backoff.Cap <= 0 {
		opts.Backoff.Cap = 30 * time.Second
	}
	if opts.InFlightDelay <= 0 {
		opts.InFlightDelay = 100 * time.Millisecond
	}

	return &Consumer{
		queue:         queue,
		broker:        deps.Broker,
		store:         deps.Store,
		guard:         deps.Guard,
		callout:       deps.Callout,
		audit:         deps.Audit,
		metrics:       deps.Metrics,
		logger:        deps.Logger.With(zap.String("queue", string(queue))),
		maxAttempts:   opts.MaxAttempts,
		backoff:       opts.Backoff,
		inFlightDelay: opts.InFlightDelay,
	}
}

// Run pulls until ctx is canceled. Cancellation stops new pulls immediately
// but the delivery already in hand is settled before Run returns.
func (c *Consumer) Run(ctx context.Context) {
	for {
		delivery, err := c.broker.Consume(ctx, c.queue)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to consume delivery", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		c.recordConsumed()
		c.handleDelivery(context.WithoutCancel(ctx), delivery)
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery *domain.Delivery) {
	msg := delivery.Message
	started := time.Now()

	lease, err := c.guard.Acquire(ctx, msg.OrderID)
	switch {
	case errors.Is(err, domain.ErrOrderTerminal):
		// Settled order: redelivered or out-of-order leftovers, drop it.
		c.logger.Debug("dropping delivery for settled order", zap.String("order_id", msg.OrderID))
		c.ack(ctx, delivery)
		return
	case errors.Is(err, domain.ErrAlreadyInFlight):
		// Another instance is on it right now. Not a failure.
		c.recordLeaseConflict()
		c.requeue(ctx, delivery, c.inFlightDelay, "in_flight")
		return
	case err != nil:
		c.logger.Error("failed to acquire lease", zap.String("order_id", msg.OrderID), zap.Error(err))
		c.retryOrEscalate(ctx, delivery, err)
		return
	}
	defer c.guard.Release(lease)
	c.recordLeasesInFlight()

	err = c.process(ctx, msg)
	c.recordProcessingDuration(time.Since(started))

	switch {
	case err == nil:
		c.ack(ctx, delivery)
	case errors.Is(err, errMalformedPayload):
		c.deadLetter(ctx, delivery, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		if c.queue == domain.OrderQueue {
			// The only order event is "start processing"; any non-pending
			// status means it already ran. Duplicate delivery, drop it.
			c.logger.Debug("dropping duplicate order event", zap.String("order_id", msg.OrderID))
			c.ack(ctx, delivery)
			return
		}
		// Payment arrived before the order reached PROCESSING. Retry until
		// order creation lands.
		c.logger.Info("payment event ahead of order lifecycle, requeueing",
			zap.String("order_id", msg.OrderID),
			zap.Int("attempt", msg.AttemptCount))
		c.retryOrEscalate(ctx, delivery, err)
	default:
		switch Classify(err) {
		case Terminal:
			c.settleTerminal(ctx, delivery, err)
		default:
			c.retryOrEscalate(ctx, delivery, err)
		}
	}
}

// process advances the order for one message. It performs all I/O; transition
// legality itself is decided by TryTransition alone.
func (c *Consumer) process(ctx context.Context, msg domain.QueueMessage) error {
	switch c.queue {
	case domain.OrderQueue:
		return c.processOrderEvent(ctx, msg)
	case domain.PaymentQueue:
		return c.processPaymentEvent(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown queue type %q", errMalformedPayload, c.queue)
	}
}

func (c *Consumer) processOrderEvent(ctx context.Context, msg domain.QueueMessage) error {
	order, err := c.store.GetOrderByID(ctx, msg.OrderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		order = &domain.Order{
			ID:      msg.OrderID,
			Status:  domain.StatusPending,
			Version: 1,
		}
		if err := c.store.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order %s: %w", msg.OrderID, err)
		}
		c.logger.Info("order created", zap.String("order_id", order.ID))
	} else if err != nil {
		return fmt.Errorf("failed to load order %s: %w", msg.OrderID, err)
	}

	next, err := TryTransition(order.Status, domain.EventStartProcessing)
	if err != nil {
		return err
	}

	if err := c.callout.ProcessOrder(ctx, msg); err != nil {
		return err
	}

	if err := c.store.CompareAndSetStatus(ctx, order.ID, order.Version, next, ""); err != nil {
		return fmt.Errorf("failed to persist %s for order %s: %w", next, order.ID, err)
	}

	c.logger.Info("order processing started",
		zap.String("order_id", order.ID),
		zap.Int64("version", order.Version+1))
	return nil
}

func (c *Consumer) processPaymentEvent(ctx context.Context, msg domain.QueueMessage) error {
	order, err := c.store.GetOrderByID(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", msg.OrderID, err)
	}

	var result domain.PaymentResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}

	var event domain.OrderEvent
	switch result.Result {
	case domain.PaymentResultConfirmed:
		event = domain.EventPaymentConfirmed
	case domain.PaymentResultRejected:
		event = domain.EventPaymentRejected
	default:
		return fmt.Errorf("%w: unknown payment result %q", errMalformedPayload, result.Result)
	}

	next, err := TryTransition(order.Status, event)
	if err != nil {
		return err
	}

	if err := c.callout.ProcessPayment(ctx, msg); err != nil {
		return err
	}

	lastError := ""
	if event == domain.EventPaymentRejected {
		lastError = "payment rejected"
		if result.Reason != "" {
			lastError = fmt.Sprintf("payment rejected: %s", result.Reason)
		}
	}

	if err := c.store.CompareAndSetStatus(ctx, order.ID, order.Version, next, lastError); err != nil {
		return fmt.Errorf("failed to persist %s for order %s: %w", next, order.ID, err)
	}

	c.recordTerminalOutcome(ctx, order.ID, order.Version+1, next, lastError)
	return nil
}

// retryOrEscalate requeues with exponential backoff while the delivery still
// has retry budget; past the budget the failure becomes terminal.
func (c *Consumer) retryOrEscalate(ctx context.Context, delivery *domain.Delivery, cause error) {
	msg := delivery.Message
	if msg.AttemptCount >= c.maxAttempts {
		c.settleTerminal(ctx, delivery, fmt.Errorf("%w after %d attempts: %v",
			domain.ErrRetryBudgetExhausted, msg.AttemptCount, cause))
		return
	}
	c.requeue(ctx, delivery, c.backoff.Delay(msg.AttemptCount), "backoff")
}

// settleTerminal persists FAILED with the cause recorded, then acknowledges.
// A delivery whose order cannot be failed is dead-lettered instead.
func (c *Consumer) settleTerminal(ctx context.Context, delivery *domain.Delivery, cause error) {
	if c.failOrder(ctx, delivery.Message.OrderID, cause) {
		c.ack(ctx, delivery)
		return
	}
	c.deadLetter(ctx, delivery, cause.Error())
}

func (c *Consumer) failOrder(ctx context.Context, orderID string, cause error) bool {
	order, err := c.store.GetOrderByID(ctx, orderID)
	if err != nil {
		c.logger.Error("failed to load order for terminal failure",
			zap.String("order_id", orderID), zap.Error(err))
		return false
	}
	if order.Status.Terminal() {
		return true
	}

	next, err := TryTransition(order.Status, domain.EventFulfillmentFailed)
	if err != nil {
		return false
	}
	if err := c.store.CompareAndSetStatus(ctx, orderID, order.Version, next, cause.Error()); err != nil {
		c.logger.Error("failed to persist terminal failure",
			zap.String("order_id", orderID), zap.Error(err))
		return false
	}

	c.recordTerminalOutcome(ctx, orderID, order.Version+1, next, cause.Error())
	return true
}

func (c *Consumer) ack(ctx context.Context, delivery *domain.Delivery) {
	if err := c.broker.Ack(ctx, delivery.Token); err != nil {
		c.logger.Error("failed to ack delivery",
			zap.String("order_id", delivery.Message.OrderID), zap.Error(err))
		return
	}
	c.recordAcked()
}

func (c *Consumer) requeue(ctx context.Context, delivery *domain.Delivery, delay time.Duration, reason string) {
	if err := c.broker.Requeue(ctx, delivery.Token, delay); err != nil {
		c.logger.Error("failed to requeue delivery",
			zap.String("order_id", delivery.Message.OrderID), zap.Error(err))
		return
	}
	c.recordRequeued(reason)
}

func (c *Consumer) deadLetter(ctx context.Context, delivery *domain.Delivery, reason string) {
	c.logger.Error("dead-lettering delivery",
		zap.String("order_id", delivery.Message.OrderID),
		zap.String("reason", reason))
	if err := c.broker.DeadLetter(ctx, delivery.Token, reason); err != nil {
		c.logger.Error("failed to dead-letter delivery",
			zap.String("order_id", delivery.Message.OrderID), zap.Error(err))
		return
	}
	c.recordDeadLettered()
}

func (c *Consumer) recordTerminalOutcome(ctx context.Context, orderID string, version int64, status domain.OrderStatus, reason string) {
	now := time.Now()
	switch status {
	case domain.StatusCompleted:
		c.logger.Info("order completed", zap.String("order_id", orderID), zap.Int64("version", version))
		if c.metrics != nil {
			c.metrics.RecordOrderCompleted()
		}
		if err := c.audit.LogOrderCompleted(ctx, logger.OrderCompletedEvent{
			OrderID:   orderID,
			Version:   version,
			Timestamp: now,
		}); err != nil {
			c.logger.Warn("failed to write completion audit row", zap.Error(err))
		}
	case domain.StatusFailed:
		c.logger.Info("order failed",
			zap.String("order_id", orderID),
			zap.Int64("version", version),
			zap.String("reason", reason))
		if c.metrics != nil {
			c.metrics.RecordOrderFailed()
		}
		if err := c.audit.LogOrderFailed(ctx, logger.OrderFailedEvent{
			OrderID:   orderID,
			Version:   version,
			Reason:    reason,
			Timestamp: now,
		}); err != nil {
			c.logger.Warn("failed to write failure audit row", zap.Error(err))
		}
	}
}

func (c *Consumer) recordConsumed() {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordConsumed(string(c.queue))
}

func (c *Consumer) recordAcked() {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordAcked(string(c.queue))
}

func (c *Consumer) recordRequeued(reason string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordRequeued(string(c.queue), reason)
}

func (c *Consumer) recordDeadLettered() {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordDeadLettered(string(c.queue))
}

func (c *Consumer) recordLeaseConflict() {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLeaseConflict(string(c.queue))
}

func (c *Consumer) recordLeasesInFlight() {
	if c.metrics == nil {
		return
	}
	c.metrics.SetLeasesInFlight(c.guard.InFlight())
}

func (c *Consumer) recordProcessingDuration(d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordProcessingDuration(string(c.queue), d)
}
