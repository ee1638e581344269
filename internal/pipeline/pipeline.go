// Package pipeline evaluates one point end to end: density, noise, air
// quality and the optional amenity and address lookups, followed by the
// frustration score.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/region"
	"github.com/sells-group/livability-cli/internal/scorer"
	"github.com/sells-group/livability-cli/internal/waterfall"
	"github.com/sells-group/livability-cli/pkg/airquality"
	"github.com/sells-group/livability-cli/pkg/anthropic"
	"github.com/sells-group/livability-cli/pkg/geocode"
	"github.com/sells-group/livability-cli/pkg/google"
	"github.com/sells-group/livability-cli/pkg/noise"
)

// DefaultTimeout bounds a whole query.
const DefaultTimeout = 45 * time.Second

// Overrides carries signals that have no upstream provider.
type Overrides struct {
	RentUSD       *float64 `json:"rentUsd,omitempty"`
	TransitGood01 *float64 `json:"transitGood01,omitempty"`
}

// Query is one evaluation request. Nil Weights fall back to the pipeline
// defaults.
type Query struct {
	Point     model.Point
	Weights   scorer.Weights
	Overrides Overrides
	Summary   bool
}

// Report is the assembled answer for a point.
type Report struct {
	ID          string                  `json:"id"`
	Point       model.Point             `json:"point"`
	Density     region.DensityResult    `json:"populationDensity"`
	Noise       waterfall.SampledResult `json:"noisePollution"`
	AirQuality  waterfall.Result        `json:"airQuality"`
	Grocery     *google.GroceryDistance `json:"groceryStore,omitempty"`
	Location    *geocode.Place          `json:"locationDetails,omitempty"`
	Raw         scorer.RawSignals       `json:"raw"`
	Frustration scorer.Score            `json:"frustration"`
	Summary     string                  `json:"summary,omitempty"`
	ElapsedMs   int64                   `json:"elapsedMs"`
}

// Pipeline wires the signal resolvers together. The density resolver and
// both signal queriers are required; everything else is optional.
type Pipeline struct {
	density *region.DensityResolver
	noise   *waterfall.Sampler
	air     waterfall.Querier

	grocery   google.Client
	places    geocode.Client
	llm       anthropic.Client
	llmModel  string
	llmTokens int64

	sampleMeters float64
	noiseFields  []string
	weights      scorer.Weights
	timeout      time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGrocery enables the nearest grocery store lookup.
func WithGrocery(c google.Client) Option {
	return func(p *Pipeline) { p.grocery = c }
}

// WithGeocoder enables reverse geocoding.
func WithGeocoder(c geocode.Client) Option {
	return func(p *Pipeline) { p.places = c }
}

// WithSummarizer enables LLM summaries.
func WithSummarizer(c anthropic.Client, model string, maxTokens int64) Option {
	return func(p *Pipeline) {
		p.llm = c
		p.llmModel = model
		p.llmTokens = maxTokens
	}
}

// WithTimeout sets the per-query deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithSampleMeters sets the noise sampling radius.
func WithSampleMeters(m float64) Option {
	return func(p *Pipeline) { p.sampleMeters = m }
}

// WithNoiseFields sets the attribute names searched for a decibel value.
func WithNoiseFields(fields []string) Option {
	return func(p *Pipeline) {
		if len(fields) > 0 {
			p.noiseFields = fields
		}
	}
}

// WithWeights sets the weights used when a query carries none.
func WithWeights(w scorer.Weights) Option {
	return func(p *Pipeline) { p.weights = w }
}

// New creates a Pipeline. noiseQ is wrapped in a spatial sampler.
func New(density *region.DensityResolver, noiseQ, airQ waterfall.Querier, opts ...Option) *Pipeline {
	p := &Pipeline{
		density:      density,
		noise:        waterfall.NewSampler(noiseQ),
		air:          airQ,
		sampleMeters: waterfall.DefaultSampleMeters,
		noiseFields:  noise.DefaultDecibelFields,
		weights:      scorer.DefaultWeights(),
		timeout:      DefaultTimeout,
		llmTokens:    1024,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// HasSummarizer reports whether summaries are available.
func (p *Pipeline) HasSummarizer() bool { return p.llm != nil }

// Evaluate runs every lookup for q.Point in order and scores the result.
// Only invalid input is returned as an error. Upstream failures degrade the
// affected signal and optional collaborators are dropped from the report.
func (p *Pipeline) Evaluate(ctx context.Context, q Query) (*Report, error) {
	if err := q.Point.Validate(); err != nil {
		return nil, err
	}
	if err := scorer.ValidateWeights(q.Weights); err != nil {
		return nil, eris.Wrap(model.ErrInvalidInput, err.Error())
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	report := &Report{ID: uuid.NewString(), Point: q.Point}
	log := zap.L().With(
		zap.String("query_id", report.ID),
		zap.String("point", q.Point.String()),
	)

	density, err := p.density.Resolve(q.Point)
	if err != nil {
		return nil, err
	}
	report.Density = density

	report.Noise = p.noise.Sample(ctx, q.Point, p.sampleMeters)
	report.AirQuality = p.air.Resolve(ctx, q.Point)

	if p.grocery != nil {
		g, gErr := p.grocery.NearestGrocery(ctx, q.Point)
		if gErr != nil {
			log.Warn("pipeline: grocery lookup failed", zap.Error(gErr))
		} else {
			report.Grocery = g
		}
	}

	if p.places != nil {
		place, pErr := p.places.Reverse(ctx, q.Point)
		if pErr != nil {
			log.Warn("pipeline: reverse geocode failed", zap.Error(pErr))
		} else {
			report.Location = place
		}
	}

	report.Raw = p.rawSignals(report, q.Overrides)

	weights := q.Weights
	if len(weights) == 0 {
		weights = p.weights
	}
	report.Frustration = scorer.Compute(report.Raw, weights)

	if q.Summary {
		if p.llm == nil {
			log.Warn("pipeline: summary requested without a summarizer")
		} else if summary, sErr := p.Summarize(ctx, report); sErr != nil {
			log.Warn("pipeline: summary failed", zap.Error(sErr))
		} else {
			report.Summary = summary
		}
	}

	report.ElapsedMs = time.Since(start).Milliseconds()
	log.Info("pipeline: query complete",
		zap.Bool("density_found", report.Density.Found()),
		zap.Bool("noise_found", report.Noise.Found),
		zap.Bool("air_found", report.AirQuality.Found),
		zap.Float64("score_signed", report.Frustration.ScoreSigned),
		zap.String("color", report.Frustration.Color),
		zap.Int64("elapsed_ms", report.ElapsedMs),
	)

	return report, nil
}

// rawSignals pulls scorer inputs out of the resolved signals. Anything not
// found stays nil so the scorer applies its neutral value.
func (p *Pipeline) rawSignals(r *Report, o Overrides) scorer.RawSignals {
	raw := scorer.RawSignals{
		DensityMean:   r.Density.Mean,
		RentUSD:       o.RentUSD,
		TransitGood01: o.TransitGood01,
	}
	if r.Noise.Found {
		if db, ok := noise.NoiseDB(r.Noise.Attributes, p.noiseFields); ok {
			raw.NoiseDB = scorer.Ptr(db)
		}
	}
	if r.AirQuality.Found {
		if aqi, ok := airquality.USAQI(r.AirQuality.Attributes); ok {
			raw.AQI = scorer.Ptr(aqi)
		}
	}
	return raw
}
