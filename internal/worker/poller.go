package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"autoorder/internal/domain"
	"autoorder/internal/repository"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultMaxAttempts  = 60
)

// StatusChecker resolves one order's current status against the gateway.
type StatusChecker interface {
	CheckStatus(ctx context.Context, orderID string) (domain.OrderStatus, *domain.Order, error)
}

// StatusPoller sweeps pending orders on an interval and folds the gateway's
// answer into the store, so orders settle even when the buyer never polls and
// no webhook arrives. Each order gets a bounded number of attempts; after that
// the poller stops asking and leaves the order to its own expiry.
type StatusPoller struct {
	orders      repository.OrderRepository
	checker     StatusChecker
	interval    time.Duration
	maxAttempts int

	mu       sync.Mutex
	attempts map[string]int
}

func NewStatusPoller(orders repository.OrderRepository, checker StatusChecker, interval time.Duration, maxAttempts int) *StatusPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &StatusPoller{
		orders:      orders,
		checker:     checker,
		interval:    interval,
		maxAttempts: maxAttempts,
		attempts:    make(map[string]int),
	}
}

// Run blocks until ctx is cancelled.
func (p *StatusPoller) Run(ctx context.Context) {
	log.Printf("[poller] started, interval=%s max_attempts=%d", p.interval, p.maxAttempts)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[poller] stopped")
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass over the pending orders.
func (p *StatusPoller) Sweep(ctx context.Context) {
	pending, err := p.orders.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		log.Printf("[poller] list pending: %v", err)
		return
	}

	live := make(map[string]bool, len(pending))
	for _, o := range pending {
		live[o.OrderID] = true
		if !p.tryAttempt(o.OrderID) {
			continue
		}
		status, _, err := p.checker.CheckStatus(ctx, o.OrderID)
		if err != nil {
			log.Printf("[poller] check %s: %v", o.OrderID, err)
			continue
		}
		if status != domain.StatusPending {
			log.Printf("[poller] %s resolved to %s", o.OrderID, status)
		}
	}
	p.forgetSettled(live)
}

// tryAttempt counts one attempt for the order, false once the budget is spent.
func (p *StatusPoller) tryAttempt(orderID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempts[orderID] >= p.maxAttempts {
		return false
	}
	p.attempts[orderID]++
	return true
}

// forgetSettled drops attempt counters for orders that are no longer pending.
func (p *StatusPoller) forgetSettled(live map[string]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.attempts {
		if !live[id] {
			delete(p.attempts, id)
		}
	}
}
