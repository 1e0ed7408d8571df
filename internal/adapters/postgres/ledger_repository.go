package postgres

import (
	"context"
	"time"

	"github.com/cartloop/ranking-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) FilterNew(ctx context.Context, eventIDs []string) ([]string, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	var seen []string
	err := r.db.WithContext(ctx).Model(&ledgerModel{}).
		Where("event_id IN ?", eventIDs).
		Pluck("event_id", &seen).Error
	if err != nil {
		return nil, err
	}
	seenSet := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}
	fresh := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if _, ok := seenSet[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

// Record bulk-inserts ledger rows. ON CONFLICT DO NOTHING absorbs the race
// where a concurrent consumer recorded an id between FilterNew and here.
func (r *ledgerRepository) Record(ctx context.Context, entries []ports.LedgerEntry, handledAt time.Time) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]ledgerModel, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, ledgerModel{
			EventID:   entry.EventID,
			EventType: entry.EventType,
			HandledAt: handledAt,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

var _ ports.EventLedger = (*ledgerRepository)(nil)
