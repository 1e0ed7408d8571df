package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cartloop/ranking-service/internal/adapters/cache"
	eventadapter "github.com/cartloop/ranking-service/internal/adapters/events"
	httpadapter "github.com/cartloop/ranking-service/internal/adapters/http"
	"github.com/cartloop/ranking-service/internal/adapters/postgres"
	"github.com/cartloop/ranking-service/internal/adapters/scheduler"
	"github.com/cartloop/ranking-service/internal/application"
	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	consumers  []*eventadapter.ConsumerWorker
	scheduler  *scheduler.Scheduler
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	buckets := cache.NewRedisBucketStore(redisClient)

	repos := postgres.NewRepositories(db)
	service, err := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName: cfg.ServiceID,
			Weights: domain.Weights{
				View:  decimal.NewFromFloat(cfg.ViewWeight),
				Like:  decimal.NewFromFloat(cfg.LikeWeight),
				Order: decimal.NewFromFloat(cfg.OrderWeight),
			},
			DecayFactor:       decimal.NewFromFloat(cfg.DecayFactor),
			CarryOverFraction: decimal.NewFromFloat(cfg.CarryOverFraction),
			ScoreFloor:        decimal.NewFromFloat(cfg.ScoreFloor),
			HourlyBucketTTL:   cfg.HourlyBucketTTL,
			DailyBucketTTL:    cfg.DailyBucketTTL,
			StagingBucketTTL:  cfg.StagingBucketTTL,
		},
		Ledger:      repos.Ledger,
		Buckets:     buckets,
		Snapshots:   repos.Snapshots,
		EventLog:    repos.EventLog,
		DeadLetters: repos.DeadLetters,
		Logger:      logger,
	})
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	handler := httpadapter.NewHandler(service)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	topicByEvent := map[string]string{
		domain.EventProductViewed.String():  cfg.TopicInteractions,
		domain.EventProductLiked.String():   cfg.TopicInteractions,
		domain.EventProductUnliked.String(): cfg.TopicInteractions,
		domain.EventOrderPaid.String():      cfg.TopicOrders,
		domain.EventOrderCancelled.String(): cfg.TopicOrders,
		domain.EventStockDepleted.String():  cfg.TopicInventory,
	}

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	var closers []io.Closer
	var consumers []*eventadapter.ConsumerWorker
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topicByEvent, cfg.PublishTimeout)
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		families := map[string]string{
			"interactions": cfg.TopicInteractions,
			"orders":       cfg.TopicOrders,
			"inventory":    cfg.TopicInventory,
		}
		for family, topic := range families {
			consumer, conErr := eventadapter.NewKafkaBatchConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, topic)
			if conErr != nil {
				logger.WarnContext(ctx, "kafka consumer disabled", "family", family, "error", conErr)
				continue
			}
			closers = append(closers, consumer)
			consumers = append(consumers, eventadapter.NewConsumerWorker(logger, consumer, service, family, cfg.ConsumerBatchSize, cfg.ConsumerMaxWait))
		}
	} else {
		logger.WarnContext(ctx, "no kafka brokers configured, consumers disabled")
	}
	outbox := eventadapter.NewOutboxWorker(logger, repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.OutboxMaxRetries)

	sched := scheduler.New(logger)
	sched.Register(scheduler.Job{
		Name:        "hourly_bucket_transition",
		Interval:    time.Hour,
		AlignToHour: true,
		Run: func(ctx context.Context) error {
			return service.TransitionHourlyBucket(ctx, time.Now().UTC())
		},
	})
	sched.Register(scheduler.Job{
		Name:     "daily_rollup",
		Interval: cfg.RollupInterval,
		Run: func(ctx context.Context) error {
			return service.RollupRecentDays(ctx, time.Now().UTC())
		},
	})
	sched.Register(scheduler.Job{
		Name:     "ranking_recalculation",
		Interval: cfg.RecalcInterval,
		Run: func(ctx context.Context) error {
			return service.RecalculateCurrentRankings(ctx, time.Now().UTC())
		},
	})
	sched.Register(scheduler.Job{
		Name:       "daily_carry_over",
		Interval:   cfg.CarryOverInterval,
		AlignToDay: true,
		Run: func(ctx context.Context) error {
			return service.CarryOverDailyScores(ctx, time.Now().UTC())
		},
	})

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		consumers:  consumers,
		scheduler:  sched,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, len(r.consumers)+2)

	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	for _, consumer := range r.consumers {
		go func(consumer *eventadapter.ConsumerWorker) {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}(consumer)
	}
	go func() {
		if err := r.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}
