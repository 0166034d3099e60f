package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

// ErrInvalidInterval is returned for a non-positive interval.
var ErrInvalidInterval = errors.New("scheduler interval must be positive")

// IntervalScheduler repeats a job on a fixed period using time.Ticker.
type IntervalScheduler struct {
	interval time.Duration
	logger   *slog.Logger
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler firing every interval.
func NewIntervalScheduler(interval time.Duration, logger *slog.Logger) (*IntervalScheduler, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &IntervalScheduler{interval: interval, logger: logging.Component(logger, "scheduler")}, nil
}

// Run executes job immediately and then on every tick until ctx is done.
// A failed job is logged and the next tick still fires; a fatal error stops
// the loop.
func (s *IntervalScheduler) Run(ctx context.Context, job ports.Job) error {
	if job == nil {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	now := time.Now()
	for {
		if err := job(ctx, now); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var fatal *ports.FatalJobError
			if errors.As(err, &fatal) {
				return fatal.Err
			}
			s.logger.Error("scheduled run failed", "error", err, "next", now.Add(s.interval))
		}

		select {
		case now = <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}
