package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: 8080
  read_timeout_seconds: 10s
  write_timeout_seconds: 10s

database:
  postgres:
    host: localhost
    port: 5432
    user: tagwright
    password: secret
    dbname: tagwright
    sslmode: disable
  redis:
    host: localhost
    port: 6379
    db: 0

broker:
  type: kafka
  kafka:
    brokers:
      - localhost:9092
    group_id: webhook-service
    webhook_topic: product_webhooks
    config_topic: tagging_config_events
    dlq_topic: product_webhooks_dlq
    retry:
      max_attempts: 3
      initial_interval: 1s
      max_interval: 30s
      multiplier: 2.0

logging:
  level: info
  format: json

tagging:
  cache:
    enabled: true
    ttl_seconds: 30

admin_api:
  scheme: https
  api_version: "2024-01"
  access_token: file-token
  request_timeout: 10s

management:
  rate_limit:
    enabled: true
    rps: 10
    burst: 20

circuit_breaker:
  enabled: true
  max_requests: 3
  interval: 60s
  timeout: 60s
  failure_ratio: 0.5
  min_requests: 3

tracing:
  enabled: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, "webhook-service", cfg.Broker.Kafka.GroupID)
	assert.Equal(t, "product_webhooks", cfg.Broker.Kafka.WebhookTopic)
	assert.Equal(t, "tagging_config_events", cfg.Broker.Kafka.ConfigTopic)
	assert.Equal(t, 3, cfg.Broker.Kafka.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Broker.Kafka.Retry.InitialInterval)
	assert.True(t, cfg.Tagging.Cache.Enabled)
	assert.Equal(t, 30, cfg.Tagging.Cache.TTLSeconds)
	assert.Equal(t, "2024-01", cfg.AdminAPI.APIVersion)
	assert.Equal(t, "file-token", cfg.AdminAPI.AccessToken)
	assert.Equal(t, 10*time.Second, cfg.AdminAPI.RequestTimeout)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, 0.5, cfg.CircuitBreaker.FailureRatio)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BROKER_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ADMIN_API_ACCESS_TOKEN", "env-token")

	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, "env-token", cfg.AdminAPI.AccessToken)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownBroker(t *testing.T) {
	content := validYAML + "\n"
	cfgPath := writeConfig(t, content)
	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	cfg.Broker.Type = "rabbitmq"
	assert.Error(t, ValidateStatic(cfg))
}

func TestValidateStatic(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, ReadTimeoutSeconds: time.Second, WriteTimeoutSeconds: time.Second},
			Broker: BrokerConfig{
				Type: "kafka",
				Kafka: KafkaConfig{
					Brokers: []string{"localhost:9092"},
					GroupID: "svc",
				},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateStatic(base()))
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.Error(t, ValidateStatic(cfg))
	})

	t.Run("no brokers", func(t *testing.T) {
		cfg := base()
		cfg.Broker.Kafka.Brokers = nil
		assert.Error(t, ValidateStatic(cfg))
	})

	t.Run("missing group id", func(t *testing.T) {
		cfg := base()
		cfg.Broker.Kafka.GroupID = ""
		assert.Error(t, ValidateStatic(cfg))
	})

	t.Run("cache enabled without ttl", func(t *testing.T) {
		cfg := base()
		cfg.Tagging.Cache.Enabled = true
		assert.Error(t, ValidateStatic(cfg))
	})

	t.Run("breaker ratio out of range", func(t *testing.T) {
		cfg := base()
		cfg.CircuitBreaker.Enabled = true
		cfg.CircuitBreaker.FailureRatio = 1.5
		assert.Error(t, ValidateStatic(cfg))
	})
}
