package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestUntilHourBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 1, 12, 30, 0, 0, time.UTC)
	if got := untilHourBoundary(now); got != 29*time.Minute {
		t.Fatalf("expected 29m, got %s", got)
	}
	// Inside the final minute the delay rolls to the following boundary.
	lastMinute := time.Date(2025, 9, 1, 12, 59, 30, 0, time.UTC)
	if got := untilHourBoundary(lastMinute); got != 59*time.Minute+30*time.Second {
		t.Fatalf("expected 59m30s, got %s", got)
	}
}

func TestUntilDayBoundary(t *testing.T) {
	t.Parallel()

	afternoon := time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC)
	if got := untilDayBoundary(afternoon); got != 5*time.Hour+59*time.Minute {
		t.Fatalf("expected 5h59m, got %s", got)
	}
	// Inside the final minute the delay rolls to the following midnight.
	lastMinute := time.Date(2025, 9, 1, 23, 59, 30, 0, time.UTC)
	if got := untilDayBoundary(lastMinute); got != 23*time.Hour+59*time.Minute+30*time.Second {
		t.Fatalf("expected 23h59m30s, got %s", got)
	}
}

func TestSchedulerRunsRegisteredJobs(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := New(logger)
	var runs atomic.Int32
	sched.Register(Job{
		Name:     "test_job",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = sched.Run(ctx)
	if runs.Load() == 0 {
		t.Fatalf("expected at least one job run")
	}
}
