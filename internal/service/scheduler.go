package service

import (
	"sync"
	"time"
)

// DeliveryScheduler queues a delayed delivery attempt for an order. Delivery
// itself is idempotent, so the exact delay and duplicate scheduling only
// affect latency, never correctness.
type DeliveryScheduler interface {
	Schedule(orderID string, delay time.Duration)
	Stop()
}

// TimerScheduler runs deliveries on cancellable time.AfterFunc timers. At most
// one timer is armed per order; Stop cancels everything still pending.
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	deliver func(orderID string)
	stopped bool
}

func NewTimerScheduler(deliver func(orderID string)) *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer), deliver: deliver}
}

func (t *TimerScheduler) Schedule(orderID string, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if _, armed := t.timers[orderID]; armed {
		return
	}
	t.timers[orderID] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.timers, orderID)
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			t.deliver(orderID)
		}
	})
}

func (t *TimerScheduler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

// syncScheduler delivers inline; used by tests to make delivery deterministic.
type syncScheduler struct {
	deliver func(orderID string)
}

func (s *syncScheduler) Schedule(orderID string, _ time.Duration) { s.deliver(orderID) }
func (s *syncScheduler) Stop()                                    {}
