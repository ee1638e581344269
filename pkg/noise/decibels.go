package noise

import (
	"math"
	"strconv"
	"strings"
)

// DefaultDecibelFields are attribute names checked, in order, for a noise
// level in dB. Matching is case-insensitive.
var DefaultDecibelFields = []string{"noise_db", "db", "laeq", "gridcode", "pixel value", "value"}

// NoiseDB extracts the first finite numeric value among fields from attrs.
// Numeric strings are accepted since identify reports raster pixels as text.
func NoiseDB(attrs map[string]any, fields []string) (float64, bool) {
	if len(attrs) == 0 {
		return 0, false
	}
	if len(fields) == 0 {
		fields = DefaultDecibelFields
	}

	lower := make(map[string]any, len(attrs))
	for k, v := range attrs {
		lower[strings.ToLower(k)] = v
	}

	for _, f := range fields {
		v, ok := lower[strings.ToLower(f)]
		if !ok {
			continue
		}
		if db, ok := toFloat(v); ok {
			return db, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
