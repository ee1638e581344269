package waterfall

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/waterfall/provider"
)

// MetersPerDegree is the fixed meters per degree of latitude.
const MetersPerDegree = 111320.0

// DefaultSampleMeters is the sampling radius used when none is configured.
const DefaultSampleMeters = 50.0

// minCosLat keeps the east/west offset finite at the poles.
const minCosLat = 1e-9

// Sample directions in query order.
const (
	DirOrigin = "origin"
	DirNorth  = "north"
	DirSouth  = "south"
	DirEast   = "east"
	DirWest   = "west"
)

// SamplePoint is one position queried by the sampler.
type SamplePoint struct {
	Direction string
	Point     model.Point
}

// Querier is what the sampler drives. *Resolver satisfies it.
type Querier interface {
	Resolve(ctx context.Context, p model.Point) Result
}

// Sampler retries a sparse-coverage signal at the origin and four offsets.
type Sampler struct {
	q Querier
}

// NewSampler wraps q.
func NewSampler(q Querier) *Sampler {
	return &Sampler{q: q}
}

// Sample queries each sample point in order and returns the first hit
// annotated with the radius used. Without a usable radius only the origin is
// queried and the hit carries no offset.
func (s *Sampler) Sample(ctx context.Context, origin model.Point, meters float64) SampledResult {
	var attempts []Attempt
	for _, sp := range SamplePoints(origin, meters) {
		if ctx.Err() != nil {
			break
		}
		res := s.q.Resolve(ctx, sp.Point)
		attempts = append(attempts, res.Attempts...)
		if res.Found {
			res.Attempts = attempts
			out := SampledResult{Result: res, SampleDirection: sp.Direction}
			if hasRadius(meters) {
				offset := meters
				out.SampledOffsetMeters = &offset
			}
			return out
		}
	}

	zap.L().Debug("waterfall: no sample found",
		zap.String("origin", origin.String()),
		zap.Float64("meters", meters),
		zap.Int("attempts", len(attempts)),
	)
	return SampledResult{Result: Result{Result: provider.NotFound(MsgNoSample), Attempts: attempts}}
}

// SamplePoints returns origin, north, south, east and west offsets of meters.
// Offsets whose latitude leaves [-90, 90] are dropped and longitudes wrap
// into [-180, 180). A non-positive or non-finite radius yields only the
// origin.
func SamplePoints(origin model.Point, meters float64) []SamplePoint {
	points := []SamplePoint{{Direction: DirOrigin, Point: origin}}
	if !hasRadius(meters) {
		return points
	}

	dLat := meters / MetersPerDegree
	dLng := meters / (MetersPerDegree * math.Max(math.Cos(origin.Lat*math.Pi/180), minCosLat))

	candidates := []SamplePoint{
		{DirNorth, model.Point{Lat: origin.Lat + dLat, Lng: origin.Lng}},
		{DirSouth, model.Point{Lat: origin.Lat - dLat, Lng: origin.Lng}},
		{DirEast, model.Point{Lat: origin.Lat, Lng: wrapLng(origin.Lng + dLng)}},
		{DirWest, model.Point{Lat: origin.Lat, Lng: wrapLng(origin.Lng - dLng)}},
	}
	for _, c := range candidates {
		if c.Point.Lat < -90 || c.Point.Lat > 90 {
			continue
		}
		points = append(points, c)
	}
	return points
}

func wrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	w := math.Mod(lng+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

func hasRadius(meters float64) bool {
	return meters > 0 && !math.IsInf(meters, 0)
}
