package application

import (
	"log/slog"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/shopspring/decimal"
)

type Service struct {
	cfg         Config
	calculator  *domain.Calculator
	ledger      ports.EventLedger
	buckets     ports.BucketStore
	snapshots   ports.SnapshotRepository
	eventLog    ports.EventLog
	deadLetters ports.DeadLetterStore
	jobs        *JobRegistry
	logger      *slog.Logger
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Ledger      ports.EventLedger
	Buckets     ports.BucketStore
	Snapshots   ports.SnapshotRepository
	EventLog    ports.EventLog
	DeadLetters ports.DeadLetterStore
	Logger      *slog.Logger
}

func NewService(deps Dependencies) (*Service, error) {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ranking-service"
	}
	if cfg.DecayFactor.IsZero() {
		cfg.DecayFactor = decimal.NewFromFloat(0.1)
	}
	if cfg.CarryOverFraction.IsZero() {
		cfg.CarryOverFraction = decimal.NewFromFloat(0.3)
	}
	if cfg.ScoreFloor.IsZero() {
		cfg.ScoreFloor = decimal.NewFromFloat(0.001)
	}
	if cfg.HourlyBucketTTL <= 0 {
		cfg.HourlyBucketTTL = 48 * time.Hour
	}
	if cfg.DailyBucketTTL <= 0 {
		cfg.DailyBucketTTL = 35 * 24 * time.Hour
	}
	if cfg.StagingBucketTTL <= 0 {
		cfg.StagingBucketTTL = 24 * time.Hour
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if !cfg.DecayFactor.IsPositive() || cfg.DecayFactor.GreaterThan(decimal.NewFromInt(1)) {
		return nil, domain.ErrInvalidInput
	}
	if cfg.CarryOverFraction.IsNegative() || cfg.CarryOverFraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, domain.ErrInvalidInput
	}
	calculator, err := domain.NewCalculator(cfg.Weights)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:         cfg,
		calculator:  calculator,
		ledger:      deps.Ledger,
		buckets:     deps.Buckets,
		snapshots:   deps.Snapshots,
		eventLog:    deps.EventLog,
		deadLetters: deps.DeadLetters,
		jobs:        NewJobRegistry(),
		logger:      logger,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}, nil
}
