package main

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/livability-cli/internal/config"
	"github.com/sells-group/livability-cli/internal/pipeline"
	"github.com/sells-group/livability-cli/internal/region"
	"github.com/sells-group/livability-cli/internal/resilience"
	"github.com/sells-group/livability-cli/internal/scorer"
	"github.com/sells-group/livability-cli/internal/waterfall"
	"github.com/sells-group/livability-cli/internal/waterfall/provider"
	"github.com/sells-group/livability-cli/pkg/airquality"
	anthropicpkg "github.com/sells-group/livability-cli/pkg/anthropic"
	"github.com/sells-group/livability-cli/pkg/geocode"
	"github.com/sells-group/livability-cli/pkg/google"
	"github.com/sells-group/livability-cli/pkg/noise"
)

// queryEnv holds the dataset, resolvers and pipeline shared by the score,
// locate, batch and serve commands.
type queryEnv struct {
	Dataset  *region.Dataset
	Density  *region.DensityResolver
	Pipeline *pipeline.Pipeline
	Breakers *resilience.ServiceBreakers
	Weights  scorer.Weights
}

// initEnv validates the config for mode and builds every collaborator.
// Nothing touches the network or the dataset until the first query.
func initEnv(c *config.Config, mode string) (*queryEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	weights, err := defaultWeights(c.Scoring)
	if err != nil {
		return nil, err
	}

	ds := region.NewDataset(c.Dataset.Path)
	density := region.NewDensityResolver(ds)

	reg := newRegistry(c)
	breakers := c.Waterfall.Breakers()

	noiseResolver, err := c.Waterfall.NewResolver(reg, waterfall.SignalNoise, breakers)
	if err != nil {
		return nil, err
	}
	airResolver, err := c.Waterfall.NewResolver(reg, waterfall.SignalAirQuality, breakers)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithTimeout(time.Duration(c.Query.TimeoutSecs) * time.Second),
		pipeline.WithSampleMeters(c.Waterfall.Meters()),
		pipeline.WithNoiseFields(c.Noise.DecibelFields),
		pipeline.WithWeights(weights),
	}

	if c.Google.Key != "" {
		gOpts := []google.Option{
			google.WithBaseURL(c.Google.BaseURL),
			google.WithMode(c.Google.Mode),
			google.WithUnits(c.Google.Units),
		}
		if c.Google.RateLimit > 0 {
			gOpts = append(gOpts, google.WithRateLimiter(rate.NewLimiter(rate.Limit(c.Google.RateLimit), 5)))
		}
		opts = append(opts, pipeline.WithGrocery(google.NewClient(c.Google.Key, gOpts...)))
	} else {
		zap.L().Debug("env: google key not set, grocery lookup disabled")
	}

	if c.Nominatim.Enabled {
		opts = append(opts, pipeline.WithGeocoder(geocode.NewClient(
			geocode.WithBaseURL(c.Nominatim.BaseURL),
			geocode.WithUserAgent(c.Nominatim.UserAgent),
			geocode.WithRateLimit(c.Nominatim.RateLimit),
		)))
	}

	if c.Anthropic.Key != "" {
		var aOpts []option.RequestOption
		if c.Anthropic.BaseURL != "" {
			aOpts = append(aOpts, option.WithBaseURL(c.Anthropic.BaseURL))
		}
		client := anthropicpkg.NewClient(c.Anthropic.Key, aOpts...)
		opts = append(opts, pipeline.WithSummarizer(client, c.Anthropic.Model, c.Anthropic.MaxTokens))
	}

	zap.L().Debug("env: initialized",
		zap.String("dataset", c.Dataset.Path),
		zap.Strings("noise_chain", noiseResolver.Strategies()),
		zap.Strings("air_chain", airResolver.Strategies()),
	)

	return &queryEnv{
		Dataset:  ds,
		Density:  density,
		Pipeline: pipeline.New(density, noiseResolver, airResolver, opts...),
		Breakers: breakers,
		Weights:  weights,
	}, nil
}

// newRegistry registers every built-in strategy under its chain name.
func newRegistry(c *config.Config) *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register(noise.NewFeatureServer(noise.WithBaseURL(c.Noise.FeatureURL)))
	reg.Register(noise.NewMapServer(noise.WithBaseURL(c.Noise.MapServerURL)))
	reg.Register(airquality.NewCurrent(airquality.WithBaseURL(c.AirQuality.BaseURL)))
	reg.Register(airquality.NewHistory(
		airquality.WithBaseURL(c.AirQuality.BaseURL),
		airquality.WithDays(c.AirQuality.HistoryDays),
	))
	return reg
}

// defaultWeights resolves the configured weights. A profile file wins over
// inline weights.
func defaultWeights(sc config.ScoringConfig) (scorer.Weights, error) {
	if sc.ProfilePath != "" {
		prof, err := scorer.LoadProfile(sc.ProfilePath)
		if err != nil {
			return nil, err
		}
		return prof.Resolve(), nil
	}

	w := make(scorer.Weights, len(sc.Weights))
	for k, v := range sc.Weights {
		w[scorer.Factor(k)] = v
	}
	if err := scorer.ValidateWeights(w); err != nil {
		return nil, eris.Wrap(err, "scoring weights")
	}
	return scorer.NormalizeWeights(w), nil
}

// warmDataset loads the dataset up front and logs the parse report. A load
// failure is logged, not returned: density queries then report it per query.
func warmDataset(ds *region.Dataset) {
	start := time.Now()
	if _, err := ds.Load(); err != nil {
		zap.L().Warn("dataset unavailable", zap.String("path", ds.Path()), zap.Error(err))
		return
	}
	rep := ds.Report()
	zap.L().Info("dataset loaded",
		zap.String("path", ds.Path()),
		zap.Int("features", rep.Features),
		zap.Int("loaded", rep.Loaded),
		zap.Int("rejected", rep.Rejected),
		zap.Duration("elapsed", time.Since(start)),
	)
}
