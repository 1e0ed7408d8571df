package postgres

import (
	"context"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type snapshotRepository struct {
	db *gorm.DB
}

// ReplacePeriod is delete-then-insert, not patch: a re-run for the same
// period key converges to identical rows instead of merging stale ones.
func (r *snapshotRepository) ReplacePeriod(ctx context.Context, periodKey string, rows []domain.RankedProduct, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("period_key = ?", periodKey).Delete(&rankSnapshotModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		models := make([]rankSnapshotModel, 0, len(rows))
		for _, row := range rows {
			models = append(models, rankSnapshotModel{
				PeriodKey:    periodKey,
				ProductID:    row.ProductID,
				Score:        row.Score.String(),
				RankPosition: row.Position,
				ComputedAt:   at,
			})
		}
		return tx.Create(&models).Error
	})
}

func (r *snapshotRepository) ListPeriod(ctx context.Context, periodKey string, limit int) ([]domain.RankedProduct, error) {
	query := r.db.WithContext(ctx).
		Where("period_key = ?", periodKey).
		Order("rank_position asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []rankSnapshotModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.RankedProduct, 0, len(rows))
	for _, row := range rows {
		score, err := decimal.NewFromString(row.Score)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.RankedProduct{
			ProductID: row.ProductID,
			Score:     score,
			Position:  row.RankPosition,
		})
	}
	return out, nil
}

var _ ports.SnapshotRepository = (*snapshotRepository)(nil)
