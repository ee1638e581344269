package region

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ParseShapefile reads a polygon shapefile. DBF columns named like the
// GeoJSON properties (case-insensitive) populate the region statistics.
func ParseShapefile(shpPath string) ([]Region, ParseReport, error) {
	var report ParseReport

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, report, eris.Wrapf(err, "region: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		fieldIdx[name] = i
	}
	idIdx, hasID := fieldIdx["id"]

	var regions []Region
	for reader.Next() {
		n, shape := reader.Shape()
		report.Features++

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			report.Rejected++
			rejectLog(n, eris.Errorf("unsupported shape %T", shape))
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			report.Rejected++
			rejectLog(n, eris.New("empty polygon"))
			continue
		}

		stats, err := shapeStats(reader, fieldIdx)
		if err != nil {
			report.Rejected++
			rejectLog(n, err)
			continue
		}

		id := "shape-" + strconv.Itoa(n)
		if hasID {
			if v := cleanAttr(reader.Attribute(idIdx)); v != "" {
				id = v
			}
		}

		reg, ok := NewRegion(id, mp, stats)
		if !ok {
			report.Rejected++
			continue
		}
		regions = append(regions, reg)
	}
	report.Loaded = len(regions)
	return regions, report, nil
}

func shapeStats(reader *shp.Reader, fieldIdx map[string]int) (Stats, error) {
	var stats Stats
	for _, name := range statProps {
		idx, ok := fieldIdx[name]
		if !ok {
			continue
		}
		raw := cleanAttr(reader.Attribute(idx))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Stats{}, eris.Errorf("attribute %s is not numeric: %q", name, raw)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Stats{}, eris.Errorf("attribute %s is not finite", name)
		}
		stats.set(name, &v)
	}
	return stats, nil
}

func cleanAttr(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// polygonToMultiPolygon turns each shapefile part into the outer ring of its
// own polygon. Inner rings therefore count as containing their area, which
// matches the outer-ring-only containment rule.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("region: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("region: skipping malformed part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
