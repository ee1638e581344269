package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/region"
	"github.com/sells-group/livability-cli/internal/scorer"
	"github.com/sells-group/livability-cli/internal/waterfall"
	"github.com/sells-group/livability-cli/internal/waterfall/provider"
	"github.com/sells-group/livability-cli/pkg/anthropic"
	anthropicmocks "github.com/sells-group/livability-cli/pkg/anthropic/mocks"
	"github.com/sells-group/livability-cli/pkg/geocode"
	geocodemocks "github.com/sells-group/livability-cli/pkg/geocode/mocks"
	"github.com/sells-group/livability-cli/pkg/google"
	googlemocks "github.com/sells-group/livability-cli/pkg/google/mocks"
)

// stubQuerier answers every point with res and counts calls.
type stubQuerier struct {
	res   waterfall.Result
	calls atomic.Int32
}

func (q *stubQuerier) Resolve(_ context.Context, _ model.Point) waterfall.Result {
	q.calls.Add(1)
	return q.res
}

func hit(attrs map[string]any) *stubQuerier {
	return &stubQuerier{res: waterfall.Result{Result: provider.Result{Found: true, Attributes: attrs, ProviderLabel: "stub"}}}
}

func miss() *stubQuerier {
	return &stubQuerier{res: waterfall.Result{Result: provider.NotFound(waterfall.MsgNoProvider)}}
}

// testDensity covers lng [-100,-90] x lat [30,40] with mean 1500.
func testDensity(t *testing.T) *region.DensityResolver {
	t.Helper()
	poly := geom.NewPolygonFlat(geom.XY, []float64{-100, 30, -90, 30, -90, 40, -100, 40, -100, 30}, []int{10})
	reg, ok := region.NewRegion("r1", poly, region.Stats{Mean: scorer.Ptr(1500)})
	require.True(t, ok)
	return region.NewDensityResolver(region.NewStaticDataset([]region.Region{reg}))
}

var inside = model.Point{Lat: 35, Lng: -95}

func TestEvaluate_FullReport(t *testing.T) {
	noiseQ := hit(map[string]any{"noise_db": 62.5})
	airQ := hit(map[string]any{"us_aqi": 42.0, "pm2_5": 9.1})
	grocery := googlemocks.NewMockClient(t)
	places := geocodemocks.NewMockClient(t)

	grocery.On("NearestGrocery", mock.Anything, inside).
		Return(&google.GroceryDistance{StoreName: "Corner Market", Mode: "driving"}, nil).Once()
	places.On("Reverse", mock.Anything, inside).
		Return(&geocode.Place{DisplayName: "Somewhere, Texas"}, nil).Once()

	p := New(testDensity(t), noiseQ, airQ, WithGrocery(grocery), WithGeocoder(places))
	rep, err := p.Evaluate(context.Background(), Query{
		Point:     inside,
		Overrides: Overrides{RentUSD: scorer.Ptr(1800)},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, inside, rep.Point)
	assert.True(t, rep.Density.Found())
	assert.Equal(t, "r1", rep.Density.RegionID)
	assert.True(t, rep.Noise.Found)
	assert.Equal(t, waterfall.DirOrigin, rep.Noise.SampleDirection)
	assert.True(t, rep.AirQuality.Found)
	require.NotNil(t, rep.Grocery)
	assert.Equal(t, "Corner Market", rep.Grocery.StoreName)
	require.NotNil(t, rep.Location)
	assert.Equal(t, "Somewhere, Texas", rep.Location.DisplayName)
	assert.Empty(t, rep.Summary)

	want := scorer.RawSignals{
		DensityMean: scorer.Ptr(1500),
		AQI:         scorer.Ptr(42),
		NoiseDB:     scorer.Ptr(62.5),
		RentUSD:     scorer.Ptr(1800),
	}
	assert.Equal(t, want, rep.Raw)
	assert.Equal(t, scorer.Compute(want, nil), rep.Frustration)
	assert.Equal(t, int32(1), noiseQ.calls.Load(), "origin hit stops sampling")
}

func TestEvaluate_MissingSignalsStayNil(t *testing.T) {
	noiseQ := miss()
	p := New(testDensity(t), noiseQ, miss())

	rep, err := p.Evaluate(context.Background(), Query{Point: model.Point{Lat: 10, Lng: 10}})
	require.NoError(t, err)

	assert.False(t, rep.Density.Found())
	assert.Equal(t, region.MsgNotFound, rep.Density.Message)
	assert.False(t, rep.Noise.Found)
	assert.Equal(t, waterfall.MsgNoSample, rep.Noise.Message)
	assert.False(t, rep.AirQuality.Found)
	assert.Equal(t, scorer.RawSignals{}, rep.Raw)
	assert.InDelta(t, scorer.Missing, rep.Frustration.Score01, 1e-9)
	assert.Equal(t, int32(5), noiseQ.calls.Load())
	assert.Nil(t, rep.Grocery)
	assert.Nil(t, rep.Location)
}

func TestEvaluate_FoundWithoutUsableValue(t *testing.T) {
	p := New(testDensity(t), hit(map[string]any{"layer": "roads"}), hit(map[string]any{"pm10": 3.0}))

	rep, err := p.Evaluate(context.Background(), Query{Point: inside})
	require.NoError(t, err)
	assert.Nil(t, rep.Raw.NoiseDB)
	assert.Nil(t, rep.Raw.AQI)
}

func TestEvaluate_InvalidInput(t *testing.T) {
	noiseQ := miss()
	p := New(testDensity(t), noiseQ, miss())

	tests := []struct {
		name string
		q    Query
	}{
		{"lat out of range", Query{Point: model.Point{Lat: 91, Lng: 0}}},
		{"lng out of range", Query{Point: model.Point{Lat: 0, Lng: -181}}},
		{"unknown weight", Query{Point: inside, Weights: scorer.Weights{"crime": 1}}},
		{"negative weight", Query{Point: inside, Weights: scorer.Weights{scorer.FactorNoise: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := p.Evaluate(context.Background(), tt.q)
			require.Error(t, err)
			assert.Nil(t, rep)
			assert.True(t, errors.Is(err, model.ErrInvalidInput))
		})
	}
	assert.Zero(t, noiseQ.calls.Load(), "no lookups for invalid input")
}

func TestEvaluate_OptionalFailuresAreDropped(t *testing.T) {
	grocery := googlemocks.NewMockClient(t)
	places := geocodemocks.NewMockClient(t)
	grocery.On("NearestGrocery", mock.Anything, inside).Return(nil, google.ErrNoResults).Once()
	places.On("Reverse", mock.Anything, inside).Return(nil, geocode.ErrNoAddress).Once()

	p := New(testDensity(t), miss(), miss(), WithGrocery(grocery), WithGeocoder(places))
	rep, err := p.Evaluate(context.Background(), Query{Point: inside})
	require.NoError(t, err)
	assert.Nil(t, rep.Grocery)
	assert.Nil(t, rep.Location)
}

func TestEvaluate_QueryWeightsOverrideDefaults(t *testing.T) {
	p := New(testDensity(t), hit(map[string]any{"db": 85.0}), miss(),
		WithWeights(scorer.Weights{scorer.FactorDensity: 1}))

	rep, err := p.Evaluate(context.Background(), Query{
		Point:   inside,
		Weights: scorer.Weights{scorer.FactorDensity: 0, scorer.FactorAQI: 0, scorer.FactorNoise: 1},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rep.Frustration.Score01, 1e-9)
	assert.Equal(t, scorer.ColorRed, rep.Frustration.Color)

	rep, err = p.Evaluate(context.Background(), Query{Point: inside})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rep.Frustration.UsedWeights[scorer.FactorDensity]+rep.Frustration.UsedWeights[scorer.FactorAQI], 1e-9)
}

func TestEvaluate_AppliesDeadline(t *testing.T) {
	var sawDeadline bool
	noiseQ := queryFunc(func(ctx context.Context, _ model.Point) waterfall.Result {
		_, sawDeadline = ctx.Deadline()
		return waterfall.Result{Result: provider.NotFound("none")}
	})

	p := New(testDensity(t), noiseQ, miss(), WithTimeout(time.Second), WithSampleMeters(0))
	_, err := p.Evaluate(context.Background(), Query{Point: inside})
	require.NoError(t, err)
	assert.True(t, sawDeadline)
}

type queryFunc func(ctx context.Context, p model.Point) waterfall.Result

func (f queryFunc) Resolve(ctx context.Context, p model.Point) waterfall.Result { return f(ctx, p) }

func TestEvaluate_Summary(t *testing.T) {
	llm := anthropicmocks.NewMockClient(t)
	llm.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 300 &&
			len(req.Messages) == 1 &&
			strings.HasPrefix(req.Messages[0].Content, "Analyze this location data")
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "  Dense but clean.\n"}},
	}, nil).Once()

	p := New(testDensity(t), miss(), miss(), WithSummarizer(llm, "claude-haiku-4-5-20251001", 300))
	require.True(t, p.HasSummarizer())

	rep, err := p.Evaluate(context.Background(), Query{Point: inside, Summary: true})
	require.NoError(t, err)
	assert.Equal(t, "Dense but clean.", rep.Summary)
}

func TestEvaluate_SummaryFailureIsDropped(t *testing.T) {
	llm := anthropicmocks.NewMockClient(t)
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded")).Once()

	p := New(testDensity(t), miss(), miss(), WithSummarizer(llm, "m", 10))
	rep, err := p.Evaluate(context.Background(), Query{Point: inside, Summary: true})
	require.NoError(t, err)
	assert.Empty(t, rep.Summary)
}

func TestSummarize_NoClient(t *testing.T) {
	p := New(testDensity(t), miss(), miss())
	assert.False(t, p.HasSummarizer())

	_, err := p.Summarize(context.Background(), &Report{})
	assert.ErrorIs(t, err, ErrNoSummarizer)
}

func TestSummaryPrompt(t *testing.T) {
	rep := &Report{
		Point:   inside,
		Density: region.DensityResult{Message: region.MsgNotFound},
	}
	prompt, err := SummaryPrompt(rep)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, summaryPrompt))
	assert.Contains(t, prompt, `"populationDensity"`)
	assert.Contains(t, prompt, region.MsgNotFound)
	assert.NotContains(t, prompt, "groceryStore")
	assert.NotContains(t, prompt, `"id"`)
}
