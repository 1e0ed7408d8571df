package application

import (
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServiceName string

	Weights domain.Weights

	// DecayFactor multiplies every score during the hourly bucket transition.
	// Must be in (0, 1].
	DecayFactor decimal.Decimal
	// CarryOverFraction of the ending day's scores seeds the next day's
	// bucket. Must be in [0, 1].
	CarryOverFraction decimal.Decimal
	// ScoreFloor drops members whose decayed score falls below it, so decay
	// terminates instead of trailing infinitesimal members forever.
	ScoreFloor decimal.Decimal

	HourlyBucketTTL  time.Duration
	DailyBucketTTL   time.Duration
	StagingBucketTTL time.Duration
}

// InboundRecord is one broker message as the consumer worker hands it to the
// pipeline: identity from the event_id header, payload still opaque.
type InboundRecord struct {
	Topic     string
	Partition int
	Offset    int64
	EventID   string
	Payload   []byte
}

// BatchStats summarizes one handled batch for logging and tests.
type BatchStats struct {
	Received   int
	Duplicates int
	Applied    int
	Parked     int
}
