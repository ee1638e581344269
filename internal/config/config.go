package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/livability-cli/internal/waterfall"
)

// Config holds the full application configuration.
type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset" mapstructure:"dataset"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Waterfall  waterfall.Config `yaml:"waterfall" mapstructure:"waterfall"`
	Noise      NoiseConfig      `yaml:"noise" mapstructure:"noise"`
	AirQuality AirQualityConfig `yaml:"air_quality" mapstructure:"air_quality"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Nominatim  NominatimConfig  `yaml:"nominatim" mapstructure:"nominatim"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Query      QueryConfig      `yaml:"query" mapstructure:"query"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DatasetConfig points at the region polygons (GeoJSON, gzipped GeoJSON or
// a shapefile).
type DatasetConfig struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// ScoringConfig holds default weights. A profile file, when set, replaces
// the inline weights.
type ScoringConfig struct {
	Weights     map[string]float64 `yaml:"weights" mapstructure:"weights"`
	ProfilePath string             `yaml:"profile" mapstructure:"profile"`
}

// NoiseConfig holds the ArcGIS noise service endpoints.
type NoiseConfig struct {
	FeatureURL    string   `yaml:"feature_url" mapstructure:"feature_url" validate:"omitempty,url"`
	MapServerURL  string   `yaml:"map_server_url" mapstructure:"map_server_url" validate:"omitempty,url"`
	DecibelFields []string `yaml:"decibel_fields" mapstructure:"decibel_fields"`
}

// AirQualityConfig holds Open-Meteo settings.
type AirQualityConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	HistoryDays int    `yaml:"history_days" mapstructure:"history_days" validate:"gte=1,lte=92"`
}

// GoogleConfig holds Google Maps settings. The grocery lookup is skipped
// when Key is empty.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Mode      string  `yaml:"mode" mapstructure:"mode" validate:"oneof=driving walking bicycling transit"`
	Units     string  `yaml:"units" mapstructure:"units" validate:"oneof=imperial metric"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
}

// NominatimConfig holds reverse geocoding settings.
type NominatimConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
}

// AnthropicConfig holds Anthropic API settings. Summaries are disabled when
// Key is empty.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=1"`
}

// QueryConfig bounds a single point evaluation.
type QueryConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=1"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1,lte=32"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional) and environment. A
// .env file in the working directory is loaded first; variables already set
// win.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. The file must exist when
// path is set.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("LIVABILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.path", "data/regions.geojson")
	v.SetDefault("waterfall.chains", waterfall.DefaultChains())
	v.SetDefault("waterfall.sample_meters", waterfall.DefaultSampleMeters)
	v.SetDefault("waterfall.provider_timeout_ms", 8000)
	v.SetDefault("waterfall.retry_attempts", 1)
	v.SetDefault("waterfall.retry_backoff_ms", 250)
	v.SetDefault("waterfall.breaker_threshold", 5)
	v.SetDefault("waterfall.breaker_open_secs", 30)
	v.SetDefault("air_quality.history_days", 30)
	v.SetDefault("google.mode", "driving")
	v.SetDefault("google.units", "imperial")
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("nominatim.enabled", true)
	v.SetDefault("nominatim.user_agent", "livability-cli/1.0")
	v.SetDefault("nominatim.rate_limit", 1)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("query.timeout_secs", 45)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Keys without defaults must be bound for Unmarshal to see env values.
	for _, key := range []string{
		"google.key", "google.base_url",
		"anthropic.key", "anthropic.base_url",
		"noise.feature_url", "noise.map_server_url",
		"air_quality.base_url", "nominatim.base_url",
		"scoring.profile",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Read config file (optional unless path is set)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks the configuration for a command. Mode is one of "score",
// "locate", "batch" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return eris.Wrap(err, "config: validate")
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	switch mode {
	case "score", "locate", "batch":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// describe renders a validator error with the config key path.
func describe(fe validator.FieldError) string {
	key := configKey(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "url":
		return key + " must be a URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", key, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", key, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", key, fe.Tag())
	}
}

// configKey maps "Config.AirQuality.HistoryDays" to "air_quality.history_days".
func configKey(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				sb.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
