package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"analytics-gateway/internal/platform/metrics"
)

// SweepableStore is implemented by stores that need periodic eviction of
// idle identities. The Redis store is absent here on purpose: key expiry
// already bounds its footprint.
type SweepableStore interface {
	Sweep(ctx context.Context) (evicted, tracked int, err error)
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

func WithLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// Sweeper periodically evicts identities with no activity inside the window,
// keeping the rate limiter's memory bounded under client churn.
type Sweeper struct {
	store    SweepableStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

// NewSweeper creates a sweeper for the given store. The default interval is
// 5 minutes.
func NewSweeper(store SweepableStore, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:    store,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			evicted, tracked, err := s.RunOnce(ctx)
			duration := time.Since(start)

			if err != nil {
				s.logger.Error("rate_limit_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.RecordSweep("error", 0)
				}
				continue
			}

			s.logger.Info("rate_limit_sweep_completed",
				"evicted", evicted,
				"tracked", tracked,
				"duration_ms", duration.Milliseconds(),
			)
			if s.metrics != nil {
				s.metrics.RecordSweep("success", evicted)
				s.metrics.SetTrackedClients(tracked)
			}

		case <-ctx.Done():
			s.logger.Info("rate limit sweeper stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Logging is handled by the caller (Start).
func (s *Sweeper) RunOnce(ctx context.Context) (evicted, tracked int, err error) {
	return s.store.Sweep(ctx)
}
