package postgres

import (
	"time"

	"github.com/google/uuid"
)

type outboxModel struct {
	EventID       uuid.UUID  `gorm:"column:event_id;type:uuid;primaryKey"`
	EventType     string     `gorm:"column:event_type"`
	AggregateType string     `gorm:"column:aggregate_type"`
	AggregateID   string     `gorm:"column:aggregate_id"`
	PartitionKey  string     `gorm:"column:partition_key"`
	Payload       string     `gorm:"column:payload"`
	SchemaVersion string     `gorm:"column:schema_version"`
	OccurredAt    time.Time  `gorm:"column:occurred_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	PublishedAt   *time.Time `gorm:"column:published_at"`
	RetryCount    int        `gorm:"column:retry_count"`
	LastError     *string    `gorm:"column:last_error"`
	LastErrorAt   *time.Time `gorm:"column:last_error_at"`
	DeadLettered  bool       `gorm:"column:dead_lettered"`
}

func (outboxModel) TableName() string { return "ranking_outbox" }

type outboxDeadLetterModel struct {
	DeadLetterID uuid.UUID `gorm:"column:dead_letter_id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      uuid.UUID `gorm:"column:event_id;type:uuid"`
	EventType    string    `gorm:"column:event_type"`
	PartitionKey string    `gorm:"column:partition_key"`
	Payload      string    `gorm:"column:payload"`
	RetryCount   int       `gorm:"column:retry_count"`
	LastError    *string   `gorm:"column:last_error"`
	FailedAt     time.Time `gorm:"column:failed_at"`
}

func (outboxDeadLetterModel) TableName() string { return "outbox_dead_letters" }

type ledgerModel struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	EventType string    `gorm:"column:event_type"`
	HandledAt time.Time `gorm:"column:handled_at"`
}

func (ledgerModel) TableName() string { return "ranking_event_ledger" }

type productEventModel struct {
	EventID     uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	AggregateID string    `gorm:"column:aggregate_id"`
	Payload     string    `gorm:"column:payload"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
	RecordedAt  time.Time `gorm:"column:recorded_at"`
}

func (productEventModel) TableName() string { return "product_events" }

type rankSnapshotModel struct {
	SnapshotID   uuid.UUID `gorm:"column:snapshot_id;type:uuid;default:gen_random_uuid();primaryKey"`
	PeriodKey    string    `gorm:"column:period_key"`
	ProductID    string    `gorm:"column:product_id"`
	Score        string    `gorm:"column:score;type:numeric"`
	RankPosition int       `gorm:"column:rank_position"`
	ComputedAt   time.Time `gorm:"column:computed_at"`
}

func (rankSnapshotModel) TableName() string { return "product_rank_snapshots" }

type consumerDeadLetterModel struct {
	DeadLetterID uuid.UUID `gorm:"column:dead_letter_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Topic        string    `gorm:"column:topic"`
	Partition    int       `gorm:"column:partition"`
	Offset       int64     `gorm:"column:kafka_offset"`
	EventID      string    `gorm:"column:event_id"`
	Reason       string    `gorm:"column:reason"`
	Payload      string    `gorm:"column:payload"`
	ReceivedAt   time.Time `gorm:"column:received_at"`
}

func (consumerDeadLetterModel) TableName() string { return "consumer_dead_letters" }
