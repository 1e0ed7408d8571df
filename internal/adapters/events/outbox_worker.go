package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/cenkalti/backoff/v5"
)

// OutboxWorker drains the outbox on a short fixed delay. One bad row never
// aborts the batch, and rows that exhaust the retry ceiling are swept to the
// dead-letter table instead of being re-polled forever.
type OutboxWorker struct {
	logger      *slog.Logger
	outbox      ports.OutboxRepository
	publisher   ports.EventPublisher
	interval    time.Duration
	batchSize   int
	maxRetries  int
	maxAttempts int
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize, maxRetries int) *OutboxWorker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &OutboxWorker{
		logger:      logger,
		outbox:      outbox,
		publisher:   publisher,
		interval:    interval,
		batchSize:   batchSize,
		maxRetries:  maxRetries,
		maxAttempts: 3,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	records, err := w.outbox.FetchUnpublished(ctx, w.batchSize, w.maxRetries)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	published, failed := 0, 0
	for _, rec := range records {
		if publishErr := w.publishWithRetry(ctx, rec); publishErr != nil {
			_ = w.outbox.MarkFailed(ctx, rec.EventID, publishErr.Error(), now)
			failed++
			continue
		}
		_ = w.outbox.MarkPublished(ctx, rec.EventID, now)
		published++
	}
	swept, sweepErr := w.outbox.SweepExhausted(ctx, w.maxRetries, now)
	if sweepErr != nil {
		return sweepErr
	}
	if published+failed+swept > 0 {
		w.logger.InfoContext(ctx, "outbox flushed",
			"module", "events.outbox_worker",
			"layer", "adapter",
			"operation", "process_once",
			"outcome", "success",
			"published", published,
			"failed", failed,
			"dead_lettered", swept,
		)
	}
	return nil
}

// publishWithRetry retries transient broker failures within one tick before
// handing the row back to the durable retry bookkeeping.
func (w *OutboxWorker) publishWithRetry(ctx context.Context, rec ports.OutboxRecord) error {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = 100 * time.Millisecond
	backoffCfg.MaxInterval = 2 * time.Second

	var err error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		err = w.publisher.Publish(ctx, rec.EventType, rec.EventID.String(), rec.Payload, rec.PartitionKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return err
}
