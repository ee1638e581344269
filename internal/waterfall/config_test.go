package waterfall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/livability-cli/internal/waterfall/provider"
)

func TestLoadConfig(t *testing.T) {
	yaml := `
waterfall:
  sample_meters: 75
  provider_timeout_ms: 3000
  retry_attempts: 2
  chains:
    noise: [noise_map_server, noise_feature_server]
`
	path := filepath.Join(t.TempDir(), "waterfall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 75.0, cfg.Meters())
	assert.Equal(t, 3000, cfg.ProviderTimeoutMs)
	assert.Equal(t, []string{"noise_map_server", "noise_feature_server"}, cfg.Chain(SignalNoise))
	assert.Equal(t, DefaultChains()[SignalAirQuality], cfg.Chain(SignalAirQuality), "unconfigured signal keeps defaults")
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("waterfall: [unclosed"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Meters(t *testing.T) {
	assert.Equal(t, DefaultSampleMeters, (&Config{}).Meters())
}

func TestConfig_NewResolver(t *testing.T) {
	reg := provider.NewRegistry()
	for _, name := range DefaultChains()[SignalNoise] {
		reg.Register(found(name, nil))
	}

	cfg := &Config{}
	r, err := cfg.NewResolver(reg, SignalNoise, cfg.Breakers())
	require.NoError(t, err)
	assert.Equal(t, DefaultChains()[SignalNoise], r.Strategies())

	_, err = cfg.NewResolver(reg, SignalAirQuality, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open_meteo_current")
}
