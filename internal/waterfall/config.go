package waterfall

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/livability-cli/internal/resilience"
	"github.com/sells-group/livability-cli/internal/waterfall/provider"
)

// Config describes the fallback chains and the per-provider call policy.
type Config struct {
	Chains            map[string][]string `yaml:"chains" mapstructure:"chains"`
	SampleMeters      float64             `yaml:"sample_meters" mapstructure:"sample_meters"`
	ProviderTimeoutMs int                 `yaml:"provider_timeout_ms" mapstructure:"provider_timeout_ms"`
	RetryAttempts     int                 `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs    int                 `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	BreakerThreshold  int                 `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerOpenSecs   int                 `yaml:"breaker_open_secs" mapstructure:"breaker_open_secs"`
}

// DefaultChains lists the built-in strategy order per signal.
func DefaultChains() map[string][]string {
	return map[string][]string{
		SignalNoise:      {"noise_feature_server", "noise_map_server"},
		SignalAirQuality: {"open_meteo_current", "open_meteo_history"},
	}
}

// LoadConfig reads a YAML file with a top-level "waterfall" key.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "waterfall: read config %s", path)
	}

	var wrapper struct {
		Waterfall Config `yaml:"waterfall"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "waterfall: parse config")
	}
	return &wrapper.Waterfall, nil
}

// Chain returns the configured strategy names for signal, falling back to
// the built-in order.
func (c *Config) Chain(signal string) []string {
	if names, ok := c.Chains[signal]; ok && len(names) > 0 {
		return names
	}
	return DefaultChains()[signal]
}

// Meters returns the sampling radius.
func (c *Config) Meters() float64 {
	if c.SampleMeters > 0 {
		return c.SampleMeters
	}
	return DefaultSampleMeters
}

// Options turns the call policy into resolver options sharing breakers.
func (c *Config) Options(breakers *resilience.ServiceBreakers) []Option {
	opts := []Option{
		WithTimeout(time.Duration(c.ProviderTimeoutMs) * time.Millisecond),
		WithRetry(resilience.FromRetryConfig(c.RetryAttempts, c.RetryBackoffMs, 0)),
	}
	if breakers != nil {
		opts = append(opts, WithBreakers(breakers))
	}
	return opts
}

// Breakers builds the breaker registry for this policy.
func (c *Config) Breakers() *resilience.ServiceBreakers {
	return resilience.NewServiceBreakers(resilience.FromBreakerConfig(c.BreakerThreshold, c.BreakerOpenSecs))
}

// NewResolver builds the resolver for signal from reg.
func (c *Config) NewResolver(reg *provider.Registry, signal string, breakers *resilience.ServiceBreakers) (*Resolver, error) {
	chain, err := reg.Chain(c.Chain(signal))
	if err != nil {
		return nil, eris.Wrapf(err, "waterfall: build %s chain", signal)
	}
	return NewResolver(signal, chain, c.Options(breakers)...), nil
}
