package resilience

import (
	"time"
)

// FromRetryConfig builds a RetryConfig from plain config values. Zero values
// keep the defaults.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	return cfg
}

// FromBreakerConfig builds a BreakerConfig from plain config values.
func FromBreakerConfig(failureThreshold, openTimeoutSecs int) BreakerConfig {
	cfg := DefaultBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = uint32(failureThreshold)
	}
	if openTimeoutSecs > 0 {
		cfg.OpenTimeout = time.Duration(openTimeoutSecs) * time.Second
	}
	return cfg
}
