package region

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ParseReport summarises a dataset parse.
type ParseReport struct {
	Features int
	Loaded   int
	Rejected int
}

type rawCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	ID         json.RawMessage            `json:"id"`
	Geometry   json.RawMessage            `json:"geometry"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// ParseGeoJSON decodes a FeatureCollection. Features with unsupported
// geometry or non-numeric statistics are rejected individually; a
// structurally invalid document fails as a whole.
func ParseGeoJSON(r io.Reader) ([]Region, ParseReport, error) {
	var report ParseReport

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, report, eris.Wrap(err, "region: read geojson")
	}

	var fc rawCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, report, eris.Wrap(err, "region: parse geojson")
	}
	if !strings.EqualFold(fc.Type, "FeatureCollection") {
		return nil, report, eris.Errorf("region: expected FeatureCollection, got %q", fc.Type)
	}

	report.Features = len(fc.Features)
	regions := make([]Region, 0, len(fc.Features))
	for i, raw := range fc.Features {
		reg, err := parseFeature(i, raw)
		if err != nil {
			report.Rejected++
			rejectLog(i, err)
			continue
		}
		regions = append(regions, reg)
	}
	report.Loaded = len(regions)
	return regions, report, nil
}

func parseFeature(i int, raw json.RawMessage) (Region, error) {
	var f rawFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return Region{}, eris.Wrap(err, "decode feature")
	}
	if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
		return Region{}, eris.New("missing geometry")
	}

	var g geom.T
	if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
		return Region{}, eris.Wrap(err, "decode geometry")
	}

	stats, err := parseStats(f.Properties)
	if err != nil {
		return Region{}, err
	}

	reg, ok := NewRegion(featureID(i, f.ID), g, stats)
	if !ok {
		return Region{}, eris.Errorf("unsupported geometry %T", g)
	}
	return reg, nil
}

// parseStats enforces the property schema: each stat is absent, null or a
// finite number.
func parseStats(props map[string]json.RawMessage) (Stats, error) {
	var stats Stats
	for _, name := range statProps {
		raw, ok := props[name]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return Stats{}, eris.Errorf("property %s is not numeric: %s", name, string(raw))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Stats{}, eris.Errorf("property %s is not finite", name)
		}
		stats.set(name, &v)
	}
	return stats, nil
}

func featureID(i int, raw json.RawMessage) string {
	if len(raw) > 0 && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return fmt.Sprintf("feature-%d", i)
}
