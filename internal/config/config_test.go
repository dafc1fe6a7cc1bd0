package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/kongqi_data", cfg.DatasetPath)
	assert.Equal(t, "data/output", cfg.OutputPath)
	assert.Empty(t, cfg.CitiesFile)
	assert.Len(t, cfg.Cities, 5)
	assert.True(t, cfg.SaveMonthly)
	assert.True(t, cfg.SaveSummary)
	assert.True(t, cfg.PlotEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "pm25-city-stats", cfg.KafkaTopic)
	assert.Empty(t, cfg.SQLitePath)
	assert.Empty(t, cfg.InfluxURL)
	assert.Equal(t, "pm25", cfg.InfluxBucket)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATASET_PATH", "/srv/pm25")
	t.Setenv("OUTPUT_PATH", "/tmp/out")
	t.Setenv("SAVE_MONTHLY", "false")
	t.Setenv("SAVE_SUMMARY", "0")
	t.Setenv("PLOT_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("SQLITE_PATH", "stats.db")
	t.Setenv("INFLUXDB_URL", "http://localhost:8086")
	t.Setenv("INFLUXDB_TOKEN", "token")
	t.Setenv("INFLUXDB_ORG", "org")
	t.Setenv("INFLUXDB_BUCKET", "air")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/pm25", cfg.DatasetPath)
	assert.Equal(t, "/tmp/out", cfg.OutputPath)
	assert.False(t, cfg.SaveMonthly)
	assert.False(t, cfg.SaveSummary)
	assert.False(t, cfg.PlotEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.Equal(t, "stats.db", cfg.SQLitePath)
	assert.Equal(t, "http://localhost:8086", cfg.InfluxURL)
	assert.Equal(t, "token", cfg.InfluxToken)
	assert.Equal(t, "org", cfg.InfluxOrg)
	assert.Equal(t, "air", cfg.InfluxBucket)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("PLOT_ENABLED", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLOT_ENABLED")
}

func TestLoad_InfluxWithoutToken(t *testing.T) {
	t.Setenv("INFLUXDB_URL", "http://localhost:8086")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFLUXDB_TOKEN")
}

func TestLoad_CitiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cities:
  - id: beijing
    file: BeijingPM20100101_20151231.csv
    stations: [PM_Dongsi, PM_Dongsihuan]
    reference: PM_US Post
`), 0o600))
	t.Setenv("CITIES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Cities, 1)
	assert.Equal(t, "beijing", cfg.Cities[0].ID)
	assert.Equal(t, []string{"PM_Dongsi", "PM_Dongsihuan"}, cfg.Cities[0].Stations)
	assert.Equal(t, "PM_US Post", cfg.Cities[0].Reference)
}

func TestLoad_MissingCitiesFile(t *testing.T) {
	t.Setenv("CITIES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CITIES_FILE")
}
