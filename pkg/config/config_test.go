package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, c.Limits.MainActions)
	assert.Equal(t, 2, c.Limits.GapInsights)
	assert.Equal(t, 12*time.Hour, c.Limits.Window)
	assert.Equal(t, "onemchart-backup", c.Backup.Bucket)
	assert.Equal(t, "users.db_latest", c.Backup.Key)
	assert.Equal(t, []string{"QQQ", "NVDA"}, c.Sample.Tickers)
	assert.Len(t, c.Data.Tickers, 10)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
environment: production
server:
  port: 8081
limits:
  main_actions: 25
candles:
  backend: clickhouse
clickhouse:
  host: ch.internal
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 8081, c.Server.Port)
	assert.Equal(t, 25, c.Limits.MainActions)
	assert.Equal(t, 3, c.Limits.SampleActions, "unset keys keep defaults")
	assert.Equal(t, "clickhouse", c.Candles.Backend)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	c := Default()
	c.Candles.Backend = "postgres"
	assert.Error(t, c.Validate())

	c = Default()
	c.Candles.Backend = "clickhouse"
	assert.Error(t, c.Validate(), "clickhouse backend needs a host")

	c = Default()
	c.Kafka.Enabled = true
	assert.Error(t, c.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":          "9090",
		"REDIS_URL":     "redis://localhost:6379/1",
		"AWS_S3_BUCKET": "other-bucket",
		"KAFKA_BROKERS": "k1:9092,k2:9092",
	}
	c := Default()
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, 9090, c.Server.Port)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis://localhost:6379/1", c.Redis.URL)
	assert.Equal(t, "other-bucket", c.Backup.Bucket)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	require.NoError(t, c.Validate())
}
