package ports

import (
	"context"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/google/uuid"
)

type OutboxEvent struct {
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	PartitionKey  string
	Payload       []byte
	OccurredAt    time.Time
	SchemaVersion string
}

type OutboxRecord struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
	RetryCount   int
	LastError    *string
	LastErrorAt  *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	// FetchUnpublished returns pending rows whose retry count is still below
	// the ceiling, oldest first. Rows at the ceiling are left for SweepExhausted.
	FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, eventID uuid.UUID, errMsg string, at time.Time) error
	// SweepExhausted copies rows at or past the retry ceiling into the outbox
	// dead-letter table and stops them from being polled again.
	SweepExhausted(ctx context.Context, maxRetries int, at time.Time) (int, error)
}

type LedgerEntry struct {
	EventID   string
	EventType string
}

// EventLedger is the insert-only record of handled event ids. The unique
// constraint on event_id is the sole "exactly one consumer wins" mechanism.
type EventLedger interface {
	// FilterNew returns the subset of ids with no ledger row yet.
	FilterNew(ctx context.Context, eventIDs []string) ([]string, error)
	// Record inserts ledger rows for the given entries. An id already present
	// means another consumer recorded it first; that is success, not an error.
	Record(ctx context.Context, entries []LedgerEntry, handledAt time.Time) error
}

// ProductEventEntry is the audit row written alongside the outbox row in the
// same database transaction.
type ProductEventEntry struct {
	EventID     uuid.UUID
	EventType   string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
}

// EventLog is the transactional-outbox unit of work: the business row and
// the outbox row commit or roll back together.
type EventLog interface {
	AppendWithOutbox(ctx context.Context, entry ProductEventEntry, event OutboxEvent) error
}

type SnapshotRepository interface {
	// ReplacePeriod deletes any prior rows for the period key and inserts the
	// given ranking in one transaction, making re-runs idempotent.
	ReplacePeriod(ctx context.Context, periodKey string, rows []domain.RankedProduct, at time.Time) error
	ListPeriod(ctx context.Context, periodKey string, limit int) ([]domain.RankedProduct, error)
}

type DeadLetterRecord struct {
	Topic      string
	Partition  int
	Offset     int64
	EventID    string
	Reason     string
	Payload    []byte
	ReceivedAt time.Time
}

// DeadLetterStore parks consumer records that can never succeed (missing id,
// undecodable payload) so the batch can still be acknowledged without silent
// data loss.
type DeadLetterStore interface {
	Park(ctx context.Context, rec DeadLetterRecord) error
}
