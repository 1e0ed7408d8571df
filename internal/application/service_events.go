package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/shopspring/decimal"
)

// HandleEventBatch runs one consumed batch through the pipeline: header
// extraction, in-batch dedupe, ledger filter, decode+score, grouped bucket
// increments, ledger record. A nil error tells the caller the batch may be
// acknowledged: every record was applied, skipped as a duplicate, or durably
// parked. Any returned error means no acknowledgement and full redelivery.
func (s *Service) HandleEventBatch(ctx context.Context, records []InboundRecord) (BatchStats, error) {
	stats := BatchStats{Received: len(records)}
	if len(records) == 0 {
		return stats, nil
	}
	now := s.nowFn()

	// A retried producer batch can repeat ids; collapse them before touching
	// the ledger.
	seen := make(map[string]struct{}, len(records))
	candidates := make([]InboundRecord, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.EventID) == "" {
			if err := s.park(ctx, rec, "missing event_id header"); err != nil {
				return stats, err
			}
			stats.Parked++
			continue
		}
		if _, dup := seen[rec.EventID]; dup {
			stats.Duplicates++
			continue
		}
		seen[rec.EventID] = struct{}{}
		candidates = append(candidates, rec)
	}

	ids := make([]string, 0, len(candidates))
	for _, rec := range candidates {
		ids = append(ids, rec.EventID)
	}
	freshIDs, err := s.ledger.FilterNew(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("ledger filter: %w", err)
	}
	freshSet := make(map[string]struct{}, len(freshIDs))
	for _, id := range freshIDs {
		freshSet[id] = struct{}{}
	}
	stats.Duplicates += len(candidates) - len(freshIDs)

	// Grouping collapses same-product events into one increment per bucket,
	// keeping Redis round-trips proportional to distinct products, not events.
	increments := make(map[string]map[string]decimal.Decimal)
	type removal struct{ bucket, productID string }
	var removals []removal
	handled := make([]ports.LedgerEntry, 0, len(freshIDs))
	for _, rec := range candidates {
		if _, fresh := freshSet[rec.EventID]; !fresh {
			continue
		}
		env, event, decodeErr := domain.DecodeEnvelope(rec.Payload)
		if decodeErr != nil {
			if err := s.park(ctx, rec, decodeErr.Error()); err != nil {
				return stats, err
			}
			stats.Parked++
			continue
		}
		// Keyed to the event's own hour, like the increments: a redelivery
		// after a boundary still removes from the bucket the event targets.
		if depleted, ok := event.(domain.StockDepleted); ok {
			removals = append(removals, removal{
				bucket:    domain.HourlyBucket(domain.HourKey(depleted.OccurredAt)),
				productID: depleted.ProductID,
			})
		}
		for _, entry := range s.calculator.Score(event) {
			bucket := domain.HourlyBucket(domain.HourKey(entry.OccurredAt))
			if increments[bucket] == nil {
				increments[bucket] = make(map[string]decimal.Decimal)
			}
			increments[bucket][entry.ProductID] = increments[bucket][entry.ProductID].Add(entry.Score)
		}
		handled = append(handled, ports.LedgerEntry{EventID: rec.EventID, EventType: env.EventType.String()})
		stats.Applied++
	}

	for bucket, deltas := range increments {
		if err := s.buckets.IncrementMany(ctx, bucket, deltas, s.cfg.HourlyBucketTTL); err != nil {
			return stats, fmt.Errorf("apply increments to %s: %w", bucket, err)
		}
	}
	for _, rm := range removals {
		if err := s.buckets.RemoveMember(ctx, rm.bucket, rm.productID); err != nil {
			return stats, fmt.Errorf("remove %s from %s: %w", rm.productID, rm.bucket, err)
		}
	}

	// The score effects above are already durable; a failed ledger write only
	// risks a future duplicate, which the unique constraint absorbs on the
	// next attempt. Log and acknowledge.
	if err := s.ledger.Record(ctx, handled, now); err != nil {
		s.logger.WarnContext(ctx, "ledger record failed",
			"module", "application.events",
			"layer", "application",
			"operation", "handle_batch",
			"outcome", "degraded",
			"entries", len(handled),
			"error", err,
		)
	}
	return stats, nil
}

func (s *Service) park(ctx context.Context, rec InboundRecord, reason string) error {
	err := s.deadLetters.Park(ctx, ports.DeadLetterRecord{
		Topic:      rec.Topic,
		Partition:  rec.Partition,
		Offset:     rec.Offset,
		EventID:    rec.EventID,
		Reason:     reason,
		Payload:    rec.Payload,
		ReceivedAt: s.nowFn(),
	})
	if err != nil {
		return fmt.Errorf("park record from %s[%d]@%d: %w", rec.Topic, rec.Partition, rec.Offset, err)
	}
	s.logger.WarnContext(ctx, "record parked",
		"module", "application.events",
		"layer", "application",
		"operation", "handle_batch",
		"outcome", "parked",
		"topic", rec.Topic,
		"partition", rec.Partition,
		"offset", rec.Offset,
		"reason", reason,
	)
	return nil
}
