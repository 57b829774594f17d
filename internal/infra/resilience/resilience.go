// Package resilience guards calls to remote storage backends with
// bounded retry, a circuit breaker and a bulkhead.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config bounds the retry loop and the bulkhead. A zero MaxBackoff
// leaves the exponential growth uncapped.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxConcurrency int
}

// RetryWithBackoff runs fn up to MaxRetries+1 times, doubling the
// wait between attempts with up to half a step of jitter so that
// concurrent callers do not retry in lockstep. Cancellation wins over
// the next attempt.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	wait := cfg.InitialBackoff
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries {
			return lastErr
		}

		sleep := wait
		if sleep > 0 {
			sleep += time.Duration(rand.Int63n(int64(sleep)/2 + 1))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		wait *= 2
		if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
			wait = cfg.MaxBackoff
		}
	}
}

// NewCircuitBreaker guards one storage backend. The breaker opens
// once it has seen at least 5 calls with a 60% failure rate, probes
// with 3 requests after 10 seconds, and resets its counters every
// 30 seconds while closed.
func NewCircuitBreaker(store string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        store,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead caps in-flight requests against one backend so a slow
// store cannot absorb every handler goroutine.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{slots: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or ctx is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.slots
}
