// Package waterfall queries unreliable geodata providers through ordered
// fallback chains and spatial retry sampling.
package waterfall

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/resilience"
	"github.com/sells-group/livability-cli/internal/waterfall/provider"
)

// DefaultProviderTimeout bounds a single strategy call.
const DefaultProviderTimeout = 8 * time.Second

// Resolver tries strategies in order until one reports a value. It never
// returns an error; failures become attempts and the chain moves on.
type Resolver struct {
	signal     string
	strategies []provider.Strategy
	timeout    time.Duration
	retry      resilience.RetryConfig
	breakers   *resilience.ServiceBreakers
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-strategy deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetry retries transient strategy failures before moving on.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(r *Resolver) { r.retry = cfg }
}

// WithBreakers routes every strategy call through a per-strategy breaker.
func WithBreakers(sb *resilience.ServiceBreakers) Option {
	return func(r *Resolver) { r.breakers = sb }
}

// NewResolver builds a resolver for signal over strategies, cheapest first.
func NewResolver(signal string, strategies []provider.Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		signal:     signal,
		strategies: strategies,
		timeout:    DefaultProviderTimeout,
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Signal returns the signal name this resolver serves.
func (r *Resolver) Signal() string { return r.signal }

// Strategies returns the chain's strategy names in order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve runs the chain for p.
func (r *Resolver) Resolve(ctx context.Context, p model.Point) Result {
	log := zap.L().With(zap.String("signal", r.signal), zap.String("point", p.String()))

	var (
		attempts []Attempt
		lastMiss string
	)
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			log.Debug("waterfall: chain cancelled", zap.Error(ctx.Err()))
			msg := lastMiss
			if msg == "" {
				msg = MsgCancelled
			}
			return Result{Result: provider.NotFound(msg), Attempts: attempts}
		}

		start := time.Now()
		res, err := r.query(ctx, s, p)
		attempt := Attempt{Provider: s.Name(), Duration: time.Since(start)}

		if err != nil {
			attempt.Error = err.Error()
			attempts = append(attempts, attempt)
			log.Debug("waterfall: provider error, trying next",
				zap.String("provider", s.Name()),
				zap.Duration("elapsed", attempt.Duration),
				zap.Error(err),
			)
			continue
		}

		attempt.Found = res.Found
		attempts = append(attempts, attempt)
		if res.Found {
			if res.ProviderLabel == "" {
				res.ProviderLabel = s.Name()
			}
			return Result{Result: res, Attempts: attempts}
		}
		if res.Message != "" {
			lastMiss = res.Message
		}
	}

	msg := lastMiss
	if msg == "" {
		msg = MsgNoProvider
	}
	return Result{Result: provider.NotFound(msg), Attempts: attempts}
}

func (r *Resolver) query(ctx context.Context, s provider.Strategy, p model.Point) (provider.Result, error) {
	return resilience.Call(ctx, r.breakers, r.signal+"."+s.Name(), func(ctx context.Context) (provider.Result, error) {
		return resilience.DoVal(ctx, r.retry, func(ctx context.Context) (provider.Result, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return s.Query(callCtx, p)
		})
	})
}
