package ports

import (
	"context"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/shopspring/decimal"
)

// BucketStore is the sorted-set backend for ranking buckets. Increments are
// atomic under concurrent callers; no external locking is layered on top.
type BucketStore interface {
	IncrementScore(ctx context.Context, bucket, productID string, delta decimal.Decimal, ttl time.Duration) error
	IncrementMany(ctx context.Context, bucket string, deltas map[string]decimal.Decimal, ttl time.Duration) error
	Snapshot(ctx context.Context, bucket string) ([]domain.MemberScore, error)
	TopN(ctx context.Context, bucket string, n int) ([]domain.MemberScore, error)
	RemoveMember(ctx context.Context, bucket, productID string) error
	// Promote atomically replaces the live bucket with the staging bucket and
	// stretches the short staging TTL to the promoted lifetime.
	Promote(ctx context.Context, staging, live string, ttl time.Duration) error
	Delete(ctx context.Context, buckets ...string) error
}
