// Package region loads geographic regions with population statistics and
// resolves points to the region that contains them.
package region

import (
	"github.com/twpayne/go-geom"
)

// Stat property names shared by the GeoJSON and shapefile sources.
const (
	PropMean    = "mean"
	PropMedian  = "median"
	PropMin     = "min"
	PropMax     = "max"
	PropAreaKm2 = "area_km2"
	PropPopEst  = "pop_est"
)

// statProps lists the recognised numeric properties in output order.
var statProps = []string{PropMean, PropMedian, PropMin, PropMax, PropAreaKm2, PropPopEst}

// Stats holds the optional population statistics attached to a region.
type Stats struct {
	Mean    *float64 `json:"mean"`
	Median  *float64 `json:"median"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	AreaKm2 *float64 `json:"area_km2"`
	PopEst  *float64 `json:"pop_est"`
}

func (s *Stats) set(name string, v *float64) {
	switch name {
	case PropMean:
		s.Mean = v
	case PropMedian:
		s.Median = v
	case PropMin:
		s.Min = v
	case PropMax:
		s.Max = v
	case PropAreaKm2:
		s.AreaKm2 = v
	case PropPopEst:
		s.PopEst = v
	}
}

// Region is one immutable feature of a dataset. Geometry is either a
// *geom.Polygon or a *geom.MultiPolygon in (lng, lat) order.
type Region struct {
	ID       string
	Geometry geom.T
	Stats    Stats

	bounds *geom.Bounds
}

// NewRegion builds a region from a polygonal geometry. It returns false for
// geometry types the locator cannot test.
func NewRegion(id string, g geom.T, stats Stats) (Region, bool) {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return Region{}, false
		}
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return Region{}, false
		}
	default:
		return Region{}, false
	}
	return Region{ID: id, Geometry: g, Stats: stats, bounds: g.Bounds()}, true
}
