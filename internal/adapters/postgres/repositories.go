package postgres

import (
	"github.com/cartloop/ranking-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Outbox      ports.OutboxRepository
	Ledger      ports.EventLedger
	Snapshots   ports.SnapshotRepository
	EventLog    ports.EventLog
	DeadLetters ports.DeadLetterStore
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Outbox:      &outboxRepository{db: db},
		Ledger:      &ledgerRepository{db: db},
		Snapshots:   &snapshotRepository{db: db},
		EventLog:    &eventLog{db: db},
		DeadLetters: &deadLetterRepository{db: db},
	}
}
