package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inTempDir switches to an empty directory so no config.yaml or .env is found.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/regions.geojson", cfg.Dataset.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 45, cfg.Query.TimeoutSecs)
	assert.InDelta(t, 50, cfg.Waterfall.SampleMeters, 0.001)
	assert.Equal(t, 8000, cfg.Waterfall.ProviderTimeoutMs)
	assert.Equal(t, 1, cfg.Waterfall.RetryAttempts)
	assert.Equal(t, 5, cfg.Waterfall.BreakerThreshold)
	assert.Equal(t, []string{"noise_feature_server", "noise_map_server"}, cfg.Waterfall.Chain("noise"))
	assert.Equal(t, []string{"open_meteo_current", "open_meteo_history"}, cfg.Waterfall.Chain("air_quality"))
	assert.Equal(t, 30, cfg.AirQuality.HistoryDays)
	assert.Equal(t, "driving", cfg.Google.Mode)
	assert.Equal(t, "imperial", cfg.Google.Units)
	assert.True(t, cfg.Nominatim.Enabled)
	assert.Equal(t, "livability-cli/1.0", cfg.Nominatim.UserAgent)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Empty(t, cfg.Google.Key)
	assert.Empty(t, cfg.Anthropic.Key)

	assert.NoError(t, cfg.Validate("serve"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
dataset:
  path: /srv/voronoi.geojson.gz
scoring:
  weights:
    noise: 0.5
    density: 0.5
log:
  level: debug
  format: console
server:
  port: 9090
waterfall:
  chains:
    noise: [noise_map_server]
  sample_meters: 120
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/voronoi.geojson.gz", cfg.Dataset.Path)
	assert.InDelta(t, 0.5, cfg.Scoring.Weights["noise"], 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"noise_map_server"}, cfg.Waterfall.Chain("noise"))
	assert.InDelta(t, 120, cfg.Waterfall.Meters(), 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 45, cfg.Query.TimeoutSecs)
	assert.Equal(t, 8000, cfg.Waterfall.ProviderTimeoutMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
dataset:
  path: from-file.geojson
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LIVABILITY_DATASET_PATH", "from-env.geojson")
	t.Setenv("LIVABILITY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "from-env.geojson", cfg.Dataset.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvWithoutDefault(t *testing.T) {
	inTempDir(t)
	t.Setenv("LIVABILITY_GOOGLE_KEY", "g-key")
	t.Setenv("LIVABILITY_ANTHROPIC_KEY", "sk-ant-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.Google.Key)
	assert.Equal(t, "sk-ant-key", cfg.Anthropic.Key)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LIVABILITY_SERVER_PORT=3100\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LIVABILITY_SERVER_PORT") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3100, cfg.Server.Port)
}

func TestLoadBadYAML(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadFileExplicitPath(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "prod.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  concurrency: 9\nlog:\n  level: warn\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Batch.Concurrency)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 45, cfg.Query.TimeoutSecs, "defaults still apply")
}

func TestLoadFileIgnoresWorkingDirConfig(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("batch:\n  concurrency: 2\n"), 0o644))
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("batch:\n  concurrency: 7\n"), 0o644))

	cfg, err := LoadFile(other)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Batch.Concurrency)
}

func TestLoadFileMissing(t *testing.T) {
	dir := inTempDir(t)

	_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Dataset.Path = "data/regions.geojson"
	cfg.AirQuality.HistoryDays = 30
	cfg.Google.Mode = "driving"
	cfg.Google.Units = "imperial"
	cfg.Anthropic.MaxTokens = 1024
	cfg.Query.TimeoutSecs = 45
	cfg.Batch.Concurrency = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"score", "locate", "batch", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing dataset", func(c *Config) { c.Dataset.Path = "" }, "dataset.path is required"},
		{"history window", func(c *Config) { c.AirQuality.HistoryDays = 0 }, "air_quality.history_days must be >= 1"},
		{"history too long", func(c *Config) { c.AirQuality.HistoryDays = 400 }, "air_quality.history_days must be <= 92"},
		{"travel mode", func(c *Config) { c.Google.Mode = "teleport" }, "google.mode must be one of"},
		{"bad url", func(c *Config) { c.Anthropic.BaseURL = "not a url" }, "anthropic.base_url must be a URL"},
		{"concurrency", func(c *Config) { c.Batch.Concurrency = 0 }, "batch.concurrency must be >= 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("score")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.Dataset.Path = ""
	cfg.Query.TimeoutSecs = 0

	err := cfg.Validate("locate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset.path is required")
	assert.Contains(t, err.Error(), "query.timeout_secs must be >= 1")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be between 1 and 65535")

	assert.NoError(t, cfg.Validate("score"), "port only matters when serving")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "air_quality.history_days", configKey("Config.AirQuality.HistoryDays"))
	assert.Equal(t, "server.cors_origins", configKey("Config.Server.CORSOrigins"))
	assert.Equal(t, "google.base_url", configKey("Config.Google.BaseURL"))
}
