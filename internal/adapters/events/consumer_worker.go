package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cartloop/ranking-service/internal/application"
	"github.com/segmentio/kafka-go"
)

const eventIDHeader = "event_id"

type BatchConsumer interface {
	FetchBatch(ctx context.Context, max int, maxWait time.Duration) ([]kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// ConsumerWorker drives one event family: fetch a batch, run it through the
// pipeline, commit offsets only on full success. A failed batch is simply
// fetched again; the broker's redelivery subsumes any cancellation signal.
type ConsumerWorker struct {
	logger    *slog.Logger
	consumer  BatchConsumer
	service   *application.Service
	family    string
	batchSize int
	maxWait   time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer BatchConsumer, service *application.Service, family string, batchSize int, maxWait time.Duration) *ConsumerWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	return &ConsumerWorker{
		logger:    logger,
		consumer:  consumer,
		service:   service,
		family:    family,
		batchSize: batchSize,
		maxWait:   maxWait,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"family", w.family,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.FetchBatch(ctx, w.batchSize, w.maxWait)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	records := make([]application.InboundRecord, 0, len(msgs))
	for _, msg := range msgs {
		records = append(records, application.InboundRecord{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			EventID:   headerValue(msg, eventIDHeader),
			Payload:   msg.Value,
		})
	}
	stats, err := w.service.HandleEventBatch(ctx, records)
	if err != nil {
		// No commit: the whole batch is redelivered (at-least-once), and the
		// ledger absorbs the records that already went through.
		return err
	}
	if err := w.consumer.Commit(ctx, msgs...); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "batch handled",
		"module", "events.consumer_worker",
		"layer", "adapter",
		"operation", "process_once",
		"outcome", "success",
		"family", w.family,
		"received", stats.Received,
		"applied", stats.Applied,
		"duplicates", stats.Duplicates,
		"parked", stats.Parked,
	)
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
