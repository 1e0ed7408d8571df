package postgres

import (
	"context"
	"time"

	"github.com/cartloop/ranking-service/internal/ports"
	"gorm.io/gorm"
)

type eventLog struct {
	db *gorm.DB
}

// AppendWithOutbox writes the audit row and the outbox row in one database
// transaction. The event is never published without its business row having
// committed, and vice versa.
func (l *eventLog) AppendWithOutbox(ctx context.Context, entry ports.ProductEventEntry, event ports.OutboxEvent) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := productEventModel{
			EventID:     entry.EventID,
			EventType:   entry.EventType,
			AggregateID: entry.AggregateID,
			Payload:     string(entry.Payload),
			OccurredAt:  entry.OccurredAt,
			RecordedAt:  time.Now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Create(outboxRow(event)).Error
	})
}

var _ ports.EventLog = (*eventLog)(nil)
