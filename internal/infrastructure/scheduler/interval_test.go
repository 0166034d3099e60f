package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

func TestIntervalSchedulerRepeatsUntilCancelled(t *testing.T) {
	s, err := NewIntervalScheduler(5*time.Millisecond, logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int
	err = s.Run(ctx, func(ctx context.Context, _ time.Time) error {
		runs++
		if runs == 2 {
			return errors.New("transient")
		}
		if runs == 3 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, runs)
}

func TestIntervalSchedulerStopsOnFatal(t *testing.T) {
	s, err := NewIntervalScheduler(time.Millisecond, logging.NewNop())
	require.NoError(t, err)

	boom := errors.New("boom")
	var runs int
	err = s.Run(context.Background(), func(context.Context, time.Time) error {
		runs++
		return &ports.FatalJobError{Err: boom}
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, runs)
}

func TestNewIntervalSchedulerRejectsZero(t *testing.T) {
	_, err := NewIntervalScheduler(0, logging.NewNop())
	require.ErrorIs(t, err, ErrInvalidInterval)
}
