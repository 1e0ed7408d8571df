package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/shopspring/decimal"
)

// TransitionHourlyBucket seeds the next hour's bucket with a decayed copy of
// the current hour's accumulated scores. The live bucket therefore always
// holds sum(event_score x decay^age_hours), which is what makes recent
// activity outweigh older activity without per-event timestamp bookkeeping.
// The source bucket is left in place to age out under its own TTL: the daily
// rollup recomputes by summing the day's hour buckets, so they must survive
// the transition. Members falling below the score floor are dropped.
func (s *Service) TransitionHourlyBucket(ctx context.Context, now time.Time) error {
	src := domain.HourlyBucket(domain.HourKey(now))
	dst := domain.HourlyBucket(domain.HourKey(now.Add(time.Hour)))
	members, err := s.buckets.Snapshot(ctx, src)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", src, err)
	}
	if len(members) == 0 {
		return nil
	}
	deltas := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		decayed := m.Score.Mul(s.cfg.DecayFactor)
		if decayed.Abs().LessThan(s.cfg.ScoreFloor) {
			continue
		}
		deltas[m.ProductID] = decayed
	}
	if err := s.buckets.IncrementMany(ctx, dst, deltas, s.cfg.HourlyBucketTTL); err != nil {
		return fmt.Errorf("merge into %s: %w", dst, err)
	}
	s.logger.InfoContext(ctx, "hourly bucket transitioned",
		"module", "application.ranking",
		"layer", "application",
		"operation", "transition",
		"outcome", "success",
		"source", src,
		"destination", dst,
		"members", len(deltas),
	)
	return nil
}

// RollupDailyBuckets sums whatever hourly buckets still exist for the date
// into the daily bucket via a staging key. Recomputing from source buckets
// every run is what lets a missed tick self-correct on the next one.
func (s *Service) RollupDailyBuckets(ctx context.Context, date time.Time) error {
	dateKey := domain.DateKey(date)
	live := domain.DailyBucket(dateKey)
	staging := domain.StagingBucket(live)
	if err := s.buckets.Delete(ctx, staging); err != nil {
		return fmt.Errorf("clear staging %s: %w", staging, err)
	}
	merged := 0
	for hour := 0; hour < 24; hour++ {
		hourBucket := domain.HourlyBucket(fmt.Sprintf("%s%02d", dateKey, hour))
		members, err := s.buckets.Snapshot(ctx, hourBucket)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", hourBucket, err)
		}
		if len(members) == 0 {
			continue
		}
		deltas := make(map[string]decimal.Decimal, len(members))
		for _, m := range members {
			deltas[m.ProductID] = m.Score
		}
		if err := s.buckets.IncrementMany(ctx, staging, deltas, s.cfg.StagingBucketTTL); err != nil {
			return fmt.Errorf("merge %s into staging: %w", hourBucket, err)
		}
		merged++
	}
	if err := s.buckets.Promote(ctx, staging, live, s.cfg.DailyBucketTTL); err != nil {
		return fmt.Errorf("promote %s: %w", live, err)
	}
	s.logger.InfoContext(ctx, "daily rollup complete",
		"module", "application.ranking",
		"layer", "application",
		"operation", "rollup",
		"outcome", "success",
		"date_key", dateKey,
		"hour_buckets_merged", merged,
	)
	return nil
}

// CalculateRankings orders the period's bucket and replaces its snapshot
// rows. For multi-day periods the daily buckets are first merged through a
// staging key; for a daily period the promoted daily bucket is read directly.
func (s *Service) CalculateRankings(ctx context.Context, periodKey string) error {
	dates, err := domain.PeriodDates(periodKey)
	if err != nil {
		return err
	}
	return s.calculateForDates(ctx, periodKey, dates)
}

// CalculateRankingsBetween serves the admin trigger's explicit date bounds.
func (s *Service) CalculateRankingsBetween(ctx context.Context, periodKey string, from, to time.Time) error {
	if to.Before(from) {
		return fmt.Errorf("%w: range end before start", domain.ErrInvalidInput)
	}
	return s.calculateForDates(ctx, periodKey, domain.DatesBetween(from, to))
}

func (s *Service) calculateForDates(ctx context.Context, periodKey string, dates []string) error {
	periodBucket := domain.PeriodBucket(periodKey)
	if len(dates) > 1 {
		staging := domain.StagingBucket(periodBucket)
		if err := s.buckets.Delete(ctx, staging); err != nil {
			return fmt.Errorf("clear staging %s: %w", staging, err)
		}
		for _, dateKey := range dates {
			members, err := s.buckets.Snapshot(ctx, domain.DailyBucket(dateKey))
			if err != nil {
				return fmt.Errorf("snapshot daily %s: %w", dateKey, err)
			}
			if len(members) == 0 {
				continue
			}
			deltas := make(map[string]decimal.Decimal, len(members))
			for _, m := range members {
				deltas[m.ProductID] = m.Score
			}
			if err := s.buckets.IncrementMany(ctx, staging, deltas, s.cfg.StagingBucketTTL); err != nil {
				return fmt.Errorf("merge daily %s: %w", dateKey, err)
			}
		}
		if err := s.buckets.Promote(ctx, staging, periodBucket, s.cfg.DailyBucketTTL); err != nil {
			return fmt.Errorf("promote %s: %w", periodBucket, err)
		}
	}
	members, err := s.buckets.Snapshot(ctx, periodBucket)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", periodBucket, err)
	}
	ranked := domain.RankMembers(members)
	if err := s.snapshots.ReplacePeriod(ctx, periodKey, ranked, s.nowFn()); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", periodKey, err)
	}
	s.logger.InfoContext(ctx, "rankings calculated",
		"module", "application.ranking",
		"layer", "application",
		"operation", "calculate",
		"outcome", "success",
		"period_key", periodKey,
		"products", len(ranked),
	)
	return nil
}

// RollupRecentDays rolls up yesterday's buckets and then today's. Running
// both every tick means the first tick after midnight still finalizes the
// prior date's daily bucket from hours no later tick would otherwise see.
func (s *Service) RollupRecentDays(ctx context.Context, now time.Time) error {
	if err := s.RollupDailyBuckets(ctx, now.AddDate(0, 0, -1)); err != nil {
		return err
	}
	return s.RollupDailyBuckets(ctx, now)
}

// RecalculateCurrentRankings refreshes today's snapshot between scheduled
// rollups: it re-rolls the day's hour buckets into the promoted daily bucket
// and ranks from that, so the snapshot covers the whole day so far rather
// than just the current hour.
func (s *Service) RecalculateCurrentRankings(ctx context.Context, now time.Time) error {
	if err := s.RollupDailyBuckets(ctx, now); err != nil {
		return err
	}
	members, err := s.buckets.Snapshot(ctx, domain.DailyBucket(domain.DateKey(now)))
	if err != nil {
		return err
	}
	ranked := domain.RankMembers(members)
	return s.snapshots.ReplacePeriod(ctx, domain.DailyPeriodKey(now), ranked, s.nowFn())
}

// CarryOverDailyScores seeds the next day's first bucket with a fraction of
// the ending day's live scores, so a new day does not start from a ranking
// reset. Policy, not correctness: the fraction is configurable.
func (s *Service) CarryOverDailyScores(ctx context.Context, now time.Time) error {
	members, err := s.buckets.Snapshot(ctx, domain.HourlyBucket(domain.HourKey(now)))
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	deltas := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		seeded := m.Score.Mul(s.cfg.CarryOverFraction)
		if seeded.Abs().LessThan(s.cfg.ScoreFloor) {
			continue
		}
		deltas[m.ProductID] = seeded
	}
	tomorrow := now.UTC().AddDate(0, 0, 1)
	midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)
	dst := domain.HourlyBucket(domain.HourKey(midnight))
	if err := s.buckets.IncrementMany(ctx, dst, deltas, s.cfg.HourlyBucketTTL); err != nil {
		return fmt.Errorf("seed %s: %w", dst, err)
	}
	s.logger.InfoContext(ctx, "daily scores carried over",
		"module", "application.ranking",
		"layer", "application",
		"operation", "carry_over",
		"outcome", "success",
		"destination", dst,
		"members", len(deltas),
	)
	return nil
}

// QueryRankings reads the durable snapshot rows for a period.
func (s *Service) QueryRankings(ctx context.Context, periodKey string, limit int) ([]domain.RankedProduct, error) {
	if _, err := domain.PeriodDates(periodKey); err != nil {
		return nil, err
	}
	return s.snapshots.ListPeriod(ctx, periodKey, limit)
}

// LiveTopN reads the current accumulating bucket directly.
func (s *Service) LiveTopN(ctx context.Context, now time.Time, n int) ([]domain.MemberScore, error) {
	return s.buckets.TopN(ctx, domain.HourlyBucket(domain.HourKey(now)), n)
}
