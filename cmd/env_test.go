package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/livability-cli/internal/config"
	"github.com/sells-group/livability-cli/internal/scorer"
	"github.com/sells-group/livability-cli/internal/waterfall"
)

func testConfig() *config.Config {
	return &config.Config{
		Dataset:    config.DatasetConfig{Path: "testdata/none.geojson"},
		Waterfall:  waterfall.Config{Chains: waterfall.DefaultChains()},
		AirQuality: config.AirQualityConfig{HistoryDays: 30},
		Google:     config.GoogleConfig{Mode: "driving", Units: "imperial"},
		Anthropic:  config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 256},
		Query:      config.QueryConfig{TimeoutSecs: 45},
		Batch:      config.BatchConfig{Concurrency: 2},
		Server:     config.ServerConfig{Port: 8080},
		Log:        config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestInitEnv(t *testing.T) {
	env, err := initEnv(testConfig(), "score")
	require.NoError(t, err)

	assert.Equal(t, "testdata/none.geojson", env.Dataset.Path())
	assert.NotNil(t, env.Density)
	assert.NotNil(t, env.Pipeline)
	assert.False(t, env.Pipeline.HasSummarizer())
	assert.Equal(t, scorer.DefaultWeights(), env.Weights)
}

func TestInitEnv_OptionalClients(t *testing.T) {
	c := testConfig()
	c.Google.Key = "g-key"
	c.Google.RateLimit = 5
	c.Nominatim.Enabled = true
	c.Anthropic.Key = "sk-ant"

	env, err := initEnv(c, "serve")
	require.NoError(t, err)
	assert.True(t, env.Pipeline.HasSummarizer())
}

func TestInitEnv_Errors(t *testing.T) {
	c := testConfig()
	c.Dataset.Path = ""
	_, err := initEnv(c, "score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset.path is required")

	c = testConfig()
	c.Waterfall.Chains = map[string][]string{waterfall.SignalNoise: {"made_up"}}
	_, err = initEnv(c, "score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "made_up")

	c = testConfig()
	c.Scoring.Weights = map[string]float64{"crime": 1}
	_, err = initEnv(c, "score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown factor")
}

func TestDefaultWeights_Profile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights:\n  noise: 3\n  density: 1\n"), 0644))

	w, err := defaultWeights(config.ScoringConfig{
		ProfilePath: path,
		Weights:     map[string]float64{"density": 1},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scorer.WeightSum(w), 1e-9)
	assert.Greater(t, w[scorer.FactorNoise], w[scorer.FactorDensity], "profile wins over inline weights")
}

func TestDefaultWeights_Inline(t *testing.T) {
	w, err := defaultWeights(config.ScoringConfig{Weights: map[string]float64{"rent": 1, "density": 0, "aqi": 0}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w[scorer.FactorRent], 1e-9)
}

func TestNewRegistry(t *testing.T) {
	reg := newRegistry(testConfig())
	assert.Equal(t, []string{
		"noise_feature_server",
		"noise_map_server",
		"open_meteo_current",
		"open_meteo_history",
	}, reg.List())
}
