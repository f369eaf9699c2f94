package client

import (
	"context"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
)

// NewBreaker builds the circuit breaker guarding a collaborator. Five
// consecutive failures open it; after the timeout it half-opens and lets a
// few probes through.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

// Retry runs fn with bounded exponential backoff. Callers must only pass
// operations that are safe to repeat (reads, or writes carrying an
// idempotency key).
func Retry(ctx context.Context, attempts uint, fn func() error) error {
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
	)
	return r.Do(fn)
}
