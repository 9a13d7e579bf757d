package fulfillment

import (
	"context"
	"sync"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"go.uber.org/zap"
)

// Dispatcher owns a fixed pool of consumer instances per channel. Drain stops
// new pulls at once and waits for every in-flight delivery to be settled, so
// a clean shutdown never abandons a held lease.
type Dispatcher struct {
	consumers []*Consumer
	logger    *zap.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewDispatcher(orderWorkers, paymentWorkers int, deps ConsumerDeps, opts ConsumerOptions, logger *zap.Logger) *Dispatcher {
	if orderWorkers <= 0 {
		orderWorkers = 1
	}
	if paymentWorkers <= 0 {
		paymentWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	consumers := make([]*Consumer, 0, orderWorkers+paymentWorkers)
	for i := 0; i < orderWorkers; i++ {
		consumers = append(consumers, NewConsumer(domain.OrderQueue, deps, opts))
	}
	for i := 0; i < paymentWorkers; i++ {
		consumers = append(consumers, NewConsumer(domain.PaymentQueue, deps, opts))
	}

	return &Dispatcher{
		consumers: consumers,
		logger:    logger,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	for _, c := range d.consumers {
		d.wg.Add(1)
		go func(c *Consumer) {
			defer d.wg.Done()
			c.Run(ctx)
		}(c)
	}

	d.logger.Info("dispatcher started", zap.Int("workers", len(d.consumers)))
}

// Drain blocks until every worker has settled its current delivery and exited.
func (d *Dispatcher) Drain() {
	d.stopOnce.Do(func() {
		d.logger.Info("draining dispatcher")
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
		d.logger.Info("dispatcher drained")
	})
}
