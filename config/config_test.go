package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hanksha/camping-booking-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
http:
  address: ":8080"
  cors_origins: ["https://camp.example.com"]
database:
  url: postgres://camp@localhost:5432/camp
kafka:
  brokers: ["kafka-1:9092"]
notification:
  history_capacity: 20
sync:
  poll_interval: 10s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HTTP_ADDRESS", "")

	cfg, err := config.Load(writeConfig(t, sample))

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, []string{"https://camp.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 20, cfg.Notification.HistoryCapacity)
	assert.Equal(t, 10*time.Second, cfg.Sync.PollInterval)

	assert.Equal(t, 100, cfg.Notification.InboxCapacity)
	assert.Equal(t, "booking-events", cfg.Kafka.UserTopic)
	assert.Equal(t, time.Hour, cfg.Booking.CompleteEvery)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env@db:5432/camp")
	t.Setenv("HTTP_ADDRESS", ":7070")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("API_BASE_URL", "https://primary.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SYNC_POLL_INTERVAL", "1m")

	cfg, err := config.Load(writeConfig(t, sample))

	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db:5432/camp", cfg.Database.URL)
	assert.Equal(t, ":7070", cfg.HTTP.Address)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://primary.example.com", cfg.Sync.APIBaseURL)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, time.Minute, cfg.Sync.PollInterval)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env@db:5432/camp")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
}

func TestLoadErrors(t *testing.T) {
	t.Run("database url required", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		_, err := config.Load("")

		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "http: [unclosed"))

		assert.ErrorContains(t, err, "failed to parse config")
	})

	t.Run("bad smtp port", func(t *testing.T) {
		t.Setenv("SMTP_PORT", "twenty")

		_, err := config.Load(writeConfig(t, sample))

		assert.ErrorContains(t, err, "SMTP_PORT")
	})
}
