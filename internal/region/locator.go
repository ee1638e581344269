package region

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/livability-cli/internal/model"
)

// Locate returns the first region, in slice order, whose geometry contains p.
// Containment is tested against outer rings only; holes are not subtracted.
// When regions overlap the earlier one wins. Points exactly on an edge follow
// the ray-casting comparison and have no stronger guarantee.
//
// The scan is linear in the number of regions. A bounding-box check skips
// the ring test for regions that cannot contain p.
func Locate(regions []Region, p model.Point) (*Region, bool) {
	for i := range regions {
		r := &regions[i]
		if r.bounds != nil && !inBounds(r.bounds, p) {
			continue
		}
		if Contains(r.Geometry, p) {
			return r, true
		}
	}
	return nil, false
}

// LocateLinear is Locate without the bounding-box shortcut.
func LocateLinear(regions []Region, p model.Point) (*Region, bool) {
	for i := range regions {
		if Contains(regions[i].Geometry, p) {
			return &regions[i], true
		}
	}
	return nil, false
}

// Contains reports whether p lies in the outer ring of a polygon, or of any
// member polygon of a multipolygon.
func Contains(g geom.T, p model.Point) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, p.Lng, p.Lat)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), p.Lng, p.Lat) {
				return true
			}
		}
	}
	return false
}

func polygonContains(poly *geom.Polygon, x, y float64) bool {
	if poly == nil || poly.NumLinearRings() == 0 {
		return false
	}
	outer := poly.LinearRing(0)
	return ringContains(outer.FlatCoords(), outer.Stride(), x, y)
}

// ringContains is the even-odd ray-casting test over a flat coordinate ring.
func ringContains(flat []float64, stride int, x, y float64) bool {
	if stride < 2 {
		return false
	}
	n := len(flat) / stride
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func inBounds(b *geom.Bounds, p model.Point) bool {
	return p.Lng >= b.Min(0) && p.Lng <= b.Max(0) && p.Lat >= b.Min(1) && p.Lat <= b.Max(1)
}
