package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one fixed-rate trigger. Every job must be idempotent: a missed tick
// self-corrects on the next one because each run recomputes from source
// state rather than from a running delta.
type Job struct {
	Name     string
	Interval time.Duration
	// AlignToHour delays the first run to just before the next hour boundary,
	// which is where the bucket transition wants to fire.
	AlignToHour bool
	// AlignToDay delays the first run to just before the next midnight, for
	// jobs that must read the ending day while it is still the current one.
	AlignToDay bool
	Run        func(ctx context.Context) error
}

// Scheduler registers explicit tickers at process start; no trigger depends
// on another trigger's wall-clock timing.
type Scheduler struct {
	logger *slog.Logger
	jobs   []Job
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runJob(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	delay := job.Interval
	if job.AlignToHour {
		delay = untilHourBoundary(time.Now().UTC())
	}
	if job.AlignToDay {
		delay = untilDayBoundary(time.Now().UTC())
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		s.tick(ctx, job)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled job failed",
			"module", "scheduler",
			"layer", "adapter",
			"operation", job.Name,
			"outcome", "failure",
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "scheduled job complete",
		"module", "scheduler",
		"layer", "adapter",
		"operation", job.Name,
		"outcome", "success",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// untilHourBoundary returns the delay to one minute before the next hour, so
// the transition lands just ahead of the boundary.
func untilHourBoundary(now time.Time) time.Duration {
	next := now.Truncate(time.Hour).Add(time.Hour)
	delay := next.Sub(now) - time.Minute
	if delay <= 0 {
		delay += time.Hour
	}
	return delay
}

// untilDayBoundary returns the delay to one minute before the next midnight
// UTC, so end-of-day jobs read the day that is about to close.
func untilDayBoundary(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	delay := next.Sub(now) - time.Minute
	if delay <= 0 {
		delay += 24 * time.Hour
	}
	return delay
}
