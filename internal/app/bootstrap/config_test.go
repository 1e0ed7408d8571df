package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  id: ranking-service
dependencies:
  postgres_url: postgres://localhost/ranking
  redis_url: redis://localhost:6379/0
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "ranking-service", cfg.ServiceID)
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, "product.interactions", cfg.TopicInteractions)
	require.Equal(t, 1.0, cfg.ViewWeight)
	require.Equal(t, 2.0, cfg.LikeWeight)
	require.Equal(t, 10.0, cfg.OrderWeight)
	require.Equal(t, 0.1, cfg.DecayFactor)
	require.Equal(t, 0.3, cfg.CarryOverFraction)
	require.Equal(t, 10, cfg.OutboxMaxRetries)
	require.Equal(t, 48*time.Hour, cfg.HourlyBucketTTL)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := writeConfig(t, `
service:
  id: ranking-staging
  http_port: 9000
dependencies:
  postgres_url: postgres://localhost/ranking
  redis_url: redis://localhost:6379/0
  kafka_brokers:
    - broker-1:9092
    - broker-2:9092
ranking:
  view_weight: 0.5
  decay_factor: 0.25
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "ranking-staging", cfg.ServiceID)
	require.Equal(t, 9000, cfg.HTTPPort)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 0.5, cfg.ViewWeight)
	require.Equal(t, 0.25, cfg.DecayFactor)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
dependencies:
  postgres_url: postgres://localhost/ranking
  redis_url: redis://localhost:6379/0
`)
	t.Setenv("KAFKA_BROKERS", "env-broker:9092")
	t.Setenv("RANKING_DECAY_FACTOR", "0.5")
	t.Setenv("OUTBOX_MAX_RETRIES", "3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, []string{"env-broker:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 0.5, cfg.DecayFactor)
	require.Equal(t, 3, cfg.OutboxMaxRetries)
}

func TestLoadConfigRequiresDatabases(t *testing.T) {
	path := writeConfig(t, `
service:
  id: ranking-service
`)
	t.Setenv("DB_URL", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_URL", "")

	_, err := LoadConfig(path)
	require.Error(t, err)
}
