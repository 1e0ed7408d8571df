package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	err := r.db.WithContext(ctx).Create(outboxRow(event)).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: outbox event %s", domain.ErrDuplicateEvent, event.EventID)
	}
	return err
}

func outboxRow(event ports.OutboxEvent) *outboxModel {
	return &outboxModel{
		EventID:       event.EventID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		PartitionKey:  event.PartitionKey,
		Payload:       string(event.Payload),
		SchemaVersion: event.SchemaVersion,
		OccurredAt:    event.OccurredAt,
		CreatedAt:     event.OccurredAt,
	}
}

func (r *outboxRepository) FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]ports.OutboxRecord, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL AND dead_lettered = FALSE AND retry_count < ?", maxRetries).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.OutboxRecord{
			EventID:      row.EventID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      []byte(row.Payload),
			OccurredAt:   row.OccurredAt,
			RetryCount:   row.RetryCount,
			LastError:    row.LastError,
			LastErrorAt:  row.LastErrorAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("event_id = ?", eventID).
		Update("published_at", at).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, eventID uuid.UUID, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
		}).Error
}

// SweepExhausted moves rows that hit the retry ceiling into the dead-letter
// table within one transaction, then flags them so polling skips them. The
// original row is kept for audit; only the flag stops redelivery.
func (r *outboxRepository) SweepExhausted(ctx context.Context, maxRetries int, at time.Time) (int, error) {
	var swept int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []outboxModel
		if err := tx.
			Where("published_at IS NULL AND dead_lettered = FALSE AND retry_count >= ?", maxRetries).
			Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			dead := outboxDeadLetterModel{
				EventID:      row.EventID,
				EventType:    row.EventType,
				PartitionKey: row.PartitionKey,
				Payload:      row.Payload,
				RetryCount:   row.RetryCount,
				LastError:    row.LastError,
				FailedAt:     at,
			}
			if err := tx.Create(&dead).Error; err != nil {
				return err
			}
			if err := tx.Model(&outboxModel{}).
				Where("event_id = ?", row.EventID).
				Update("dead_lettered", true).Error; err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	return swept, err
}

var _ ports.OutboxRepository = (*outboxRepository)(nil)
