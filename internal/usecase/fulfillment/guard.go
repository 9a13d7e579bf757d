package fulfillment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"go.uber.org/zap"
)

// Lease is a transient claim on exclusive processing rights for one order.
// Leases live only in memory: crash recovery relies on broker redelivery plus
// the persisted order status, never on lease state.
type Lease struct {
	OrderID    string
	Token      string
	AcquiredAt time.Time
}

// LeaseGuard enforces at most one in-flight processing attempt per order id.
// A lease held longer than timeout is treated as abandoned by a crashed holder
// and force-released, either lazily on the next Acquire or by the sweeper.
type LeaseGuard struct {
	store   domain.OrderStore
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	leases map[string]*Lease
}

func NewLeaseGuard(store domain.OrderStore, timeout time.Duration, logger *zap.Logger) *LeaseGuard {
	return &LeaseGuard{
		store:   store,
		timeout: timeout,
		logger:  logger,
		leases:  make(map[string]*Lease),
	}
}

// Acquire takes the lease for orderID. It returns ErrOrderTerminal without
// taking a lease when the persisted status is already final, and
// ErrAlreadyInFlight when another consumer currently holds the lease.
func (g *LeaseGuard) Acquire(ctx context.Context, orderID string) (*Lease, error) {
	order, err := g.store.GetOrderByID(ctx, orderID)
	if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}
	if err == nil && order.Status.Terminal() {
		return nil, domain.ErrOrderTerminal
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if held, ok := g.leases[orderID]; ok {
		if time.Since(held.AcquiredAt) <= g.timeout {
			return nil, domain.ErrAlreadyInFlight
		}
		g.logger.Warn("force-releasing abandoned lease",
			zap.String("order_id", orderID),
			zap.Time("acquired_at", held.AcquiredAt))
		delete(g.leases, orderID)
	}

	lease := &Lease{
		OrderID:    orderID,
		Token:      uuid.NewString(),
		AcquiredAt: time.Now(),
	}
	g.leases[orderID] = lease
	return lease, nil
}

// Release returns the lease. Stale handles from a force-released lease are
// ignored so an abandoned holder coming back cannot drop someone else's lease.
func (g *LeaseGuard) Release(lease *Lease) {
	if lease == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if held, ok := g.leases[lease.OrderID]; ok && held.Token == lease.Token {
		delete(g.leases, lease.OrderID)
	}
}

// Sweep force-releases every lease older than the timeout and returns how many
// were dropped.
func (g *LeaseGuard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	swept := 0
	for orderID, lease := range g.leases {
		if now.Sub(lease.AcquiredAt) > g.timeout {
			delete(g.leases, orderID)
			swept++
		}
	}
	return swept
}

// StartSweeper runs the abandoned-lease sweep until ctx is done.
func (g *LeaseGuard) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if swept := g.Sweep(time.Now()); swept > 0 {
				g.logger.Warn("swept abandoned leases", zap.Int("count", swept))
			}
		}
	}
}

// InFlight reports the number of currently held leases.
func (g *LeaseGuard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.leases)
}
