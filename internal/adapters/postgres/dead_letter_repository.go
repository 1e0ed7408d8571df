package postgres

import (
	"context"

	"github.com/cartloop/ranking-service/internal/ports"
	"gorm.io/gorm"
)

type deadLetterRepository struct {
	db *gorm.DB
}

func (r *deadLetterRepository) Park(ctx context.Context, rec ports.DeadLetterRecord) error {
	row := consumerDeadLetterModel{
		Topic:      rec.Topic,
		Partition:  rec.Partition,
		Offset:     rec.Offset,
		EventID:    rec.EventID,
		Reason:     rec.Reason,
		Payload:    string(rec.Payload),
		ReceivedAt: rec.ReceivedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

var _ ports.DeadLetterStore = (*deadLetterRepository)(nil)
