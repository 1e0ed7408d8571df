package cache

import (
	"context"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisBucketStore backs ranking buckets with sorted sets. ZINCRBY gives the
// atomicity concurrent consumers rely on; scores cross the decimal/float64
// boundary here and nowhere else.
type RedisBucketStore struct {
	client *redis.Client
}

func NewRedisBucketStore(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

func (s *RedisBucketStore) IncrementScore(ctx context.Context, bucket, productID string, delta decimal.Decimal, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZIncrBy(ctx, bucket, delta.InexactFloat64(), productID)
		if ttl > 0 {
			// NX: the TTL is set once on first write, never refreshed, so an
			// abandoned bucket expires on schedule.
			p.ExpireNX(ctx, bucket, ttl)
		}
		return nil
	})
	return err
}

func (s *RedisBucketStore) IncrementMany(ctx context.Context, bucket string, deltas map[string]decimal.Decimal, ttl time.Duration) error {
	if len(deltas) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for productID, delta := range deltas {
			p.ZIncrBy(ctx, bucket, delta.InexactFloat64(), productID)
		}
		if ttl > 0 {
			p.ExpireNX(ctx, bucket, ttl)
		}
		return nil
	})
	return err
}

func (s *RedisBucketStore) Snapshot(ctx context.Context, bucket string) ([]domain.MemberScore, error) {
	members, err := s.client.ZRangeWithScores(ctx, bucket, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return toMemberScores(members), nil
}

func (s *RedisBucketStore) TopN(ctx context.Context, bucket string, n int) ([]domain.MemberScore, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := s.client.ZRevRangeWithScores(ctx, bucket, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	return toMemberScores(members), nil
}

func (s *RedisBucketStore) RemoveMember(ctx context.Context, bucket, productID string) error {
	return s.client.ZRem(ctx, bucket, productID).Err()
}

// Promote swaps the staging bucket into the live position. An empty staging
// bucket means the period genuinely had no members; the live bucket is
// cleared rather than left stale.
func (s *RedisBucketStore) Promote(ctx context.Context, staging, live string, ttl time.Duration) error {
	exists, err := s.client.Exists(ctx, staging).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return s.client.Del(ctx, live).Err()
	}
	if err := s.client.Rename(ctx, staging, live).Err(); err != nil {
		return err
	}
	if ttl > 0 {
		return s.client.Expire(ctx, live, ttl).Err()
	}
	return nil
}

func (s *RedisBucketStore) Delete(ctx context.Context, buckets ...string) error {
	if len(buckets) == 0 {
		return nil
	}
	return s.client.Del(ctx, buckets...).Err()
}

func toMemberScores(members []redis.Z) []domain.MemberScore {
	out := make([]domain.MemberScore, 0, len(members))
	for _, m := range members {
		productID, ok := m.Member.(string)
		if !ok {
			continue
		}
		out = append(out, domain.MemberScore{
			ProductID: productID,
			Score:     decimal.NewFromFloat(m.Score),
		})
	}
	return out
}

var _ ports.BucketStore = (*RedisBucketStore)(nil)
