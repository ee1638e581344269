// Package resilience wraps provider calls with retries and per-provider
// circuit breakers.
package resilience

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a breaker rejects a call without running it.
var ErrCircuitOpen = eris.New("resilience: circuit breaker is open")

// BreakerConfig controls every breaker created by a ServiceBreakers.
type BreakerConfig struct {
	// FailureThreshold consecutive counted failures open the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long an open breaker rejects calls before probing.
	OpenTimeout time.Duration

	// HalfOpenProbes calls are let through while half-open.
	HalfOpenProbes uint32

	// Interval clears closed-state counts periodically. 0 never clears.
	Interval time.Duration

	// ShouldTrip decides whether an error counts against the breaker. When
	// nil only transient errors count.
	ShouldTrip func(err error) bool
}

// DefaultBreakerConfig returns the production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenProbes:   1,
	}
}

// ServiceBreakers hands out one breaker per provider name. Safe for
// concurrent use.
type ServiceBreakers struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewServiceBreakers creates an empty registry.
func NewServiceBreakers(cfg BreakerConfig) *ServiceBreakers {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenProbes == 0 {
		cfg.HalfOpenProbes = def.HalfOpenProbes
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = IsTransient
	}
	return &ServiceBreakers{cfg: cfg, breakers: make(map[string]*gobreaker.CircuitBreaker[any])}
}

// Get returns the breaker for service, creating it on first use.
func (sb *ServiceBreakers) Get(service string) *gobreaker.CircuitBreaker[any] {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if cb, ok := sb.breakers[service]; ok {
		return cb
	}

	threshold := sb.cfg.FailureThreshold
	shouldTrip := sb.cfg.ShouldTrip
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        service,
		MaxRequests: sb.cfg.HalfOpenProbes,
		Interval:    sb.cfg.Interval,
		Timeout:     sb.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !shouldTrip(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Info("resilience: breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	sb.breakers[service] = cb
	return cb
}

// States returns a snapshot of every known breaker's state.
func (sb *ServiceBreakers) States() map[string]string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	out := make(map[string]string, len(sb.breakers))
	for name, cb := range sb.breakers {
		out[name] = cb.State().String()
	}
	return out
}

// Names returns the sorted provider names seen so far.
func (sb *ServiceBreakers) Names() []string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	names := make([]string, 0, len(sb.breakers))
	for name := range sb.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs fn through the breaker for service. A nil registry runs fn
// directly. Rejections match ErrCircuitOpen.
func Call[T any](ctx context.Context, sb *ServiceBreakers, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	if sb == nil {
		return fn(ctx)
	}

	var zero T
	v, err := sb.Get(service).Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, eris.Wrapf(ErrCircuitOpen, "resilience: %s", service)
	}
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
