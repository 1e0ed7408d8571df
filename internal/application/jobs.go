package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type Job struct {
	ID        uuid.UUID
	Kind      string
	PeriodKey string
	Status    JobStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobRegistry tracks admin-triggered jobs in memory. Jobs are operational
// conveniences, not durable state; a restart forgetting them is acceptable
// because every job is idempotent and can simply be re-triggered.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[uuid.UUID]*Job)}
}

func (r *JobRegistry) create(kind, periodKey string, now time.Time) Job {
	job := &Job{
		ID:        uuid.New(),
		Kind:      kind,
		PeriodKey: periodKey,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return *job
}

func (r *JobRegistry) setStatus(id uuid.UUID, status JobStatus, errMsg string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = status
		job.Error = errMsg
		job.UpdatedAt = now
	}
}

func (r *JobRegistry) Get(id uuid.UUID) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, domain.ErrJobNotFound
	}
	return *job, nil
}

// StartRollupJob kicks off an out-of-band ranking calculation and returns
// immediately with the job id. Explicit bounds override the period key's
// derived date range.
func (s *Service) StartRollupJob(periodKey string, from, to *time.Time) (Job, error) {
	if from == nil || to == nil {
		if _, err := domain.PeriodDates(periodKey); err != nil {
			return Job{}, err
		}
	} else if to.Before(*from) {
		return Job{}, fmt.Errorf("%w: range end before start", domain.ErrInvalidInput)
	}
	now := s.nowFn()
	job := s.jobs.create("rollup", periodKey, now)

	go func() {
		// Detached from the request context: the job outlives the HTTP call.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.jobs.setStatus(job.ID, JobRunning, "", s.nowFn())
		var err error
		if from != nil && to != nil {
			err = s.CalculateRankingsBetween(ctx, periodKey, *from, *to)
		} else {
			err = s.CalculateRankings(ctx, periodKey)
		}
		if err != nil {
			s.jobs.setStatus(job.ID, JobFailed, err.Error(), s.nowFn())
			s.logger.ErrorContext(ctx, "rollup job failed",
				"module", "application.jobs",
				"layer", "application",
				"operation", "rollup_job",
				"outcome", "failure",
				"job_id", job.ID.String(),
				"period_key", periodKey,
				"error", err,
			)
			return
		}
		s.jobs.setStatus(job.ID, JobCompleted, "", s.nowFn())
	}()
	return job, nil
}

func (s *Service) JobStatus(id uuid.UUID) (Job, error) {
	return s.jobs.Get(id)
}
