package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("METRICS_PUSH_EXPORTER", "")

	cfg := Load()

	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Log.SamplingInitial)
	assert.False(t, cfg.Otel.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "redis:6379", cfg.RateLimit.RedisAddr)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.BulkLockTTL)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.IntegrityInterval)
	assert.Zero(t, cfg.Scheduler.ArchiveInterval)
	assert.Empty(t, cfg.Metrics.Exporter)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE_ID", "7")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_MUTATION_RATE", "2.5")
	t.Setenv("SCHEDULER_ARCHIVE_INTERVAL_SECONDS", "86400")
	t.Setenv("METRICS_PUSH_EXPORTER", " Prometheus_Remote_Write ")
	t.Setenv("ARCHIVE_DRIVER", "S3")

	cfg := Load()

	assert.Equal(t, int64(7), cfg.NodeID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http", cfg.Otel.Protocol)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.MutationRate)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.ArchiveInterval)
	assert.Equal(t, "prometheus_remote_write", cfg.Metrics.Exporter)
	assert.Equal(t, ArchiveDriverS3, cfg.Archive.Driver)
}

func TestGetenvHelpersFallBack(t *testing.T) {
	t.Setenv("PIZZALEDGER_TEST_INT", "many")
	t.Setenv("PIZZALEDGER_TEST_BOOL", "maybe")
	t.Setenv("PIZZALEDGER_TEST_FLOAT", "1,5")

	assert.Equal(t, 3, getenvInt("PIZZALEDGER_TEST_INT", 3))
	assert.True(t, getenvBool("PIZZALEDGER_TEST_BOOL", true))
	assert.Equal(t, 0.5, getenvFloat("PIZZALEDGER_TEST_FLOAT", 0.5))
}

func TestLoadLocation(t *testing.T) {
	t.Setenv("LEDGER_TZ", "")
	loc, err := LoadLocation(Load())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation(Config{TimeZone: "America/Denver"})
	require.NoError(t, err)
	assert.Equal(t, "America/Denver", loc.String())

	_, err = LoadLocation(Config{TimeZone: "Mars/Olympus"})
	assert.Error(t, err)
}
