package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CARMEMO_CONFIG", "APP_ENV", "PORT", "LOG_LEVEL", "MONGO_URI", "MONGO_DB", "BASELINE_STORE",
		"GEMINI_API_KEY", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "MQTT_BROKER", "CORS_ORIGINS",
		"SWEEP_INTERVAL", "RATE_LIMIT", "FORECAST_HORIZON", "RECORD_UNMAPPED_CATEGORIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.Baseline.Store)
	assert.Equal(t, 20000.0, cfg.Forecast.Horizon)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.PushEnabled())
	assert.False(t, cfg.MQTTEnabled())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "carmemo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: production
port: "9090"
baseline:
  store: sqlite
  sqlite_path: /tmp/carmemo.db
sweep:
  interval: 30m
  concurrency: 8
http:
  cors_origins: ["https://carmemo.app"]
`), 0o644))

	t.Setenv("CARMEMO_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MQTT_BROKER", "tcp://localhost:1883")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.Baseline.Store)
	assert.Equal(t, "/tmp/carmemo.db", cfg.Baseline.SQLitePath)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 8, cfg.Sweep.Concurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.True(t, cfg.MQTTEnabled())
	// untouched defaults survive a partial file
	assert.Equal(t, "carmemo", cfg.Mongo.Database)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"BASELINE_STORE": "redis"}},
		{"bad horizon", map[string]string{"FORECAST_HORIZON": "-5"}},
		{"unparsable horizon", map[string]string{"FORECAST_HORIZON": "far"}},
		{"bad interval", map[string]string{"SWEEP_INTERVAL": "hourly"}},
		{"bad level", map[string]string{"LOG_LEVEL": "chatty"}},
		{"half vapid", map[string]string{"VAPID_PUBLIC_KEY": "pub"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}
