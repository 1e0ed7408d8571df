package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	KafkaBrokers       []string
	KafkaConsumerGroup string
	TopicInteractions  string
	TopicOrders        string
	TopicInventory     string

	ViewWeight  float64
	LikeWeight  float64
	OrderWeight float64

	DecayFactor       float64
	CarryOverFraction float64
	ScoreFloor        float64

	HourlyBucketTTL  time.Duration
	DailyBucketTTL   time.Duration
	StagingBucketTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxRetries   int

	ConsumerBatchSize int
	ConsumerMaxWait   time.Duration
	PublishTimeout    time.Duration

	RollupInterval    time.Duration
	RecalcInterval    time.Duration
	CarryOverInterval time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL        string   `yaml:"postgres_url"`
		RedisURL           string   `yaml:"redis_url"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
		TopicInteractions  string   `yaml:"topic_interactions"`
		TopicOrders        string   `yaml:"topic_orders"`
		TopicInventory     string   `yaml:"topic_inventory"`
	} `yaml:"dependencies"`
	Ranking struct {
		ViewWeight        float64 `yaml:"view_weight"`
		LikeWeight        float64 `yaml:"like_weight"`
		OrderWeight       float64 `yaml:"order_weight"`
		DecayFactor       float64 `yaml:"decay_factor"`
		CarryOverFraction float64 `yaml:"carry_over_fraction"`
		ScoreFloor        float64 `yaml:"score_floor"`
	} `yaml:"ranking"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "ranking-service",
		HTTPPort:           8080,
		GRPCPort:           9090,
		MaxDBConns:         20,
		KafkaConsumerGroup: "ranking-service",
		TopicInteractions:  "product.interactions",
		TopicOrders:        "order.lifecycle",
		TopicInventory:     "inventory.stock",
		ViewWeight:         1,
		LikeWeight:         2,
		OrderWeight:        10,
		DecayFactor:        0.1,
		CarryOverFraction:  0.3,
		ScoreFloor:         0.001,
		HourlyBucketTTL:    48 * time.Hour,
		DailyBucketTTL:     35 * 24 * time.Hour,
		StagingBucketTTL:   24 * time.Hour,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxRetries:   10,
		ConsumerBatchSize:  100,
		ConsumerMaxWait:    2 * time.Second,
		PublishTimeout:     5 * time.Second,
		RollupInterval:     12 * time.Hour,
		RecalcInterval:     30 * time.Minute,
		CarryOverInterval:  24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.TopicInteractions != "" {
			cfg.TopicInteractions = f.Dependencies.TopicInteractions
		}
		if f.Dependencies.TopicOrders != "" {
			cfg.TopicOrders = f.Dependencies.TopicOrders
		}
		if f.Dependencies.TopicInventory != "" {
			cfg.TopicInventory = f.Dependencies.TopicInventory
		}
		if f.Ranking.ViewWeight > 0 {
			cfg.ViewWeight = f.Ranking.ViewWeight
		}
		if f.Ranking.LikeWeight > 0 {
			cfg.LikeWeight = f.Ranking.LikeWeight
		}
		if f.Ranking.OrderWeight > 0 {
			cfg.OrderWeight = f.Ranking.OrderWeight
		}
		if f.Ranking.DecayFactor > 0 {
			cfg.DecayFactor = f.Ranking.DecayFactor
		}
		if f.Ranking.CarryOverFraction > 0 {
			cfg.CarryOverFraction = f.Ranking.CarryOverFraction
		}
		if f.Ranking.ScoreFloor > 0 {
			cfg.ScoreFloor = f.Ranking.ScoreFloor
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.TopicInteractions = envOrDefault("KAFKA_TOPIC_INTERACTIONS", cfg.TopicInteractions)
	cfg.TopicOrders = envOrDefault("KAFKA_TOPIC_ORDERS", cfg.TopicOrders)
	cfg.TopicInventory = envOrDefault("KAFKA_TOPIC_INVENTORY", cfg.TopicInventory)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.ViewWeight = envFloat("RANKING_VIEW_WEIGHT", cfg.ViewWeight)
	cfg.LikeWeight = envFloat("RANKING_LIKE_WEIGHT", cfg.LikeWeight)
	cfg.OrderWeight = envFloat("RANKING_ORDER_WEIGHT", cfg.OrderWeight)
	cfg.DecayFactor = envFloat("RANKING_DECAY_FACTOR", cfg.DecayFactor)
	cfg.CarryOverFraction = envFloat("RANKING_CARRY_OVER_FRACTION", cfg.CarryOverFraction)
	cfg.ScoreFloor = envFloat("RANKING_SCORE_FLOOR", cfg.ScoreFloor)
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_MILLIS", int(cfg.OutboxPollInterval.Milliseconds()))) * time.Millisecond
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.ConsumerBatchSize = envInt("CONSUMER_BATCH_SIZE", cfg.ConsumerBatchSize)
	cfg.ConsumerMaxWait = time.Duration(envInt("CONSUMER_MAX_WAIT_MILLIS", int(cfg.ConsumerMaxWait.Milliseconds()))) * time.Millisecond
	cfg.PublishTimeout = time.Duration(envInt("PUBLISH_TIMEOUT_MILLIS", int(cfg.PublishTimeout.Milliseconds()))) * time.Millisecond
	cfg.HourlyBucketTTL = time.Duration(envInt("HOURLY_BUCKET_TTL_HOURS", int(cfg.HourlyBucketTTL.Hours()))) * time.Hour
	cfg.DailyBucketTTL = time.Duration(envInt("DAILY_BUCKET_TTL_HOURS", int(cfg.DailyBucketTTL.Hours()))) * time.Hour
	cfg.StagingBucketTTL = time.Duration(envInt("STAGING_BUCKET_TTL_HOURS", int(cfg.StagingBucketTTL.Hours()))) * time.Hour
	cfg.RollupInterval = time.Duration(envInt("ROLLUP_INTERVAL_MINUTES", int(cfg.RollupInterval.Minutes()))) * time.Minute
	cfg.RecalcInterval = time.Duration(envInt("RECALC_INTERVAL_MINUTES", int(cfg.RecalcInterval.Minutes()))) * time.Minute
	cfg.CarryOverInterval = time.Duration(envInt("CARRY_OVER_INTERVAL_MINUTES", int(cfg.CarryOverInterval.Minutes()))) * time.Minute

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
