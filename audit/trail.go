package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/plcforge/pullgov/client"
	"github.com/plcforge/pullgov/telemetry"
)

// ErrRemoteUnavailable marks an entry that could not reach the Audit Service
// and was buffered locally. Non-fatal to the governed operation.
var ErrRemoteUnavailable = errors.New("audit service unavailable, entry spooled")

// Service is the remote Audit Service surface
type Service interface {
	Write(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
	Integrity(ctx context.Context) (IntegrityReport, error)
	Stats(ctx context.Context) (Stats, error)
}

// Trail records governance decisions. Remote writes run through a circuit
// breaker; failures degrade to the local spool instead of blocking or
// failing the governed operation.
type Trail struct {
	remote  Service
	spool   Spool
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *telemetry.Logger
	metrics *telemetry.GovernanceMetrics
}

// TrailOptions configure a Trail
type TrailOptions struct {
	// Spool defaults to an in-memory ring of DefaultSpoolCapacity
	Spool Spool
	// ReplayRate caps replay writes per second against a recovering
	// service; defaults to 10/s
	ReplayRate float64
	Metrics    *telemetry.GovernanceMetrics
}

// NewTrail creates an audit trail backed by the given remote service
func NewTrail(remote Service, opts TrailOptions) *Trail {
	spool := opts.Spool
	if spool == nil {
		spool = NewMemorySpool(DefaultSpoolCapacity)
	}
	replayRate := opts.ReplayRate
	if replayRate <= 0 {
		replayRate = 10
	}

	return &Trail{
		remote:  remote,
		spool:   spool,
		breaker: client.NewBreaker("audit-service"),
		limiter: rate.NewLimiter(rate.Limit(replayRate), 1),
		logger:  telemetry.NewLogger("audit-trail"),
		metrics: opts.Metrics,
	}
}

// Record writes one entry. It never fails the governed operation: a non-nil
// error always wraps ErrRemoteUnavailable and means the entry sits in the
// local spool awaiting replay. Callers surface it as a warning at most.
func (t *Trail) Record(ctx context.Context, e Entry) error {
	_, err := t.breaker.Execute(func() (interface{}, error) {
		return nil, client.Retry(ctx, 2, func() error {
			return t.remote.Write(ctx, e)
		})
	})
	if err == nil {
		return nil
	}

	if spoolErr := t.spool.Append(e); spoolErr != nil {
		t.logger.WithContext(ctx).Error().
			Err(spoolErr).
			Str("entry_id", e.ID).
			Msg("audit entry lost: remote write and spool both failed")
		return fmt.Errorf("%w: spool append failed: %v", ErrRemoteUnavailable, spoolErr)
	}

	depth := t.spool.Len()
	t.logger.LogSpooled(ctx, e.ID, depth, err)
	t.metrics.RecordSpooled(ctx, depth)

	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}

// Query returns entries matching the filter, ordered by the server-assigned
// sequence
func (t *Trail) Query(ctx context.Context, f Filter) ([]Entry, error) {
	entries, err := t.remote.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("audit query failed: %w", err)
	}
	return entries, nil
}

// VerifyIntegrity surfaces chain verification from the Audit Service.
// Informational only.
func (t *Trail) VerifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	report, err := t.remote.Integrity(ctx)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("integrity check failed: %w", err)
	}
	return report, nil
}

// Stats surfaces the aggregate view from the Audit Service
func (t *Trail) Stats(ctx context.Context) (Stats, error) {
	stats, err := t.remote.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats query failed: %w", err)
	}
	return stats, nil
}

// SpoolDepth returns the number of entries awaiting replay
func (t *Trail) SpoolDepth() int {
	return t.spool.Len()
}

// ReplayPending drains the spool oldest-first while the Audit Service
// accepts writes. Original timestamps are preserved; the server still owns
// ordering. Returns how many entries were replayed.
func (t *Trail) ReplayPending(ctx context.Context) (int, error) {
	replayed := 0
	for {
		entry, ok, err := t.spool.Oldest()
		if err != nil {
			return replayed, fmt.Errorf("failed to read spool: %w", err)
		}
		if !ok {
			break
		}

		if err := t.limiter.Wait(ctx); err != nil {
			return replayed, err
		}

		if _, err := t.breaker.Execute(func() (interface{}, error) {
			return nil, t.remote.Write(ctx, entry)
		}); err != nil {
			// Service still down, keep the rest for the next pass
			return replayed, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}

		if err := t.spool.Shift(); err != nil {
			return replayed, fmt.Errorf("failed to consume spool: %w", err)
		}
		replayed++
	}

	if replayed > 0 {
		t.metrics.RecordReplayed(ctx, replayed, t.spool.Len())
		t.logger.WithContext(ctx).Info().
			Int("replayed", replayed).
			Int("remaining", t.spool.Len()).
			Msg("spooled audit entries replayed")
	}
	return replayed, nil
}

// RunReplay periodically replays spooled entries until ctx is cancelled.
// Used by daemon mode.
func (t *Trail) RunReplay(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.spool.Len() == 0 {
				continue
			}
			if _, err := t.ReplayPending(ctx); err != nil && !errors.Is(err, ErrRemoteUnavailable) {
				t.logger.WithContext(ctx).Error().Err(err).Msg("spool replay failed")
			}
		}
	}
}
