package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Factor names one blended signal.
type Factor string

// Blended factors.
const (
	FactorDensity Factor = "density"
	FactorAQI     Factor = "aqi"
	FactorNoise   Factor = "noise"
	FactorRent    Factor = "rent"
	FactorTransit Factor = "transit"
)

// Factors lists every factor in blend order.
var Factors = []Factor{FactorDensity, FactorAQI, FactorNoise, FactorRent, FactorTransit}

// Weights is a relative importance per factor. Absent factors take their
// default weight when merged.
type Weights map[Factor]float64

// DefaultWeights returns the built-in weighting. It sums to 1.
func DefaultWeights() Weights {
	return Weights{
		FactorDensity: 0.8,
		FactorAQI:     0.2,
		FactorNoise:   0,
		FactorRent:    0,
		FactorTransit: 0,
	}
}

// WeightSum returns the sum of all weights.
func WeightSum(w Weights) float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// NormalizeWeights merges w over the defaults and scales the result to sum
// to 1. Negative or non-finite entries count as 0. When nothing positive is
// left the defaults are returned unchanged.
func NormalizeWeights(w Weights) Weights {
	merged := DefaultWeights()
	for f, v := range w {
		if _, known := merged[f]; !known {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		merged[f] = v
	}

	// Scale by the largest weight first so huge finite inputs cannot
	// overflow the sum.
	var peak float64
	for _, v := range merged {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return DefaultWeights()
	}
	for f, v := range merged {
		merged[f] = v / peak
	}

	sum := WeightSum(merged)
	for f, v := range merged {
		merged[f] = v / sum
	}
	return merged
}

// ValidateWeights checks caller-supplied weights. It reports unknown factors
// and negative or non-finite values in one error.
func ValidateWeights(w Weights) error {
	known := make(map[Factor]bool, len(Factors))
	for _, f := range Factors {
		known[f] = true
	}

	names := make([]string, 0, len(w))
	for f := range w {
		names = append(names, string(f))
	}
	sort.Strings(names)

	var errs []string
	for _, name := range names {
		f := Factor(name)
		v := w[f]
		if !known[f] {
			errs = append(errs, fmt.Sprintf("unknown factor %q", name))
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Sprintf("%s weight must be finite", name))
			continue
		}
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", name))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: weight validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Preferences holds 1..10 importance sliders. Mood spreads over every factor
// other than density when the specific slider is unset.
type Preferences struct {
	PopulationDensity *float64 `yaml:"population_density" json:"populationDensity,omitempty"`
	Mood              *float64 `yaml:"mood" json:"moodLevel,omitempty"`
	AQI               *float64 `yaml:"aqi" json:"aqiPref,omitempty"`
	Noise             *float64 `yaml:"noise" json:"noisePref,omitempty"`
	Rent              *float64 `yaml:"rent" json:"rentPref,omitempty"`
	Transit           *float64 `yaml:"transit" json:"transitPref,omitempty"`
}

// WeightsFromPreferences turns slider values into normalized weights.
func WeightsFromPreferences(p Preferences) Weights {
	mood := slider(p.Mood)
	return NormalizeWeights(Weights{
		FactorDensity: pick(0.35, slider(p.PopulationDensity)),
		FactorAQI:     pick(0.25, slider(p.AQI), mood),
		FactorNoise:   pick(0.15, slider(p.Noise), mood),
		FactorRent:    pick(0.15, slider(p.Rent), mood),
		FactorTransit: pick(0.10, slider(p.Transit), mood),
	})
}

// slider maps 1..10 onto 0..1 with a slight emphasis curve.
func slider(v *float64) *float64 {
	if v == nil || isMissing(*v) {
		return nil
	}
	t := clamp01((*v - 1) / 9)
	out := math.Pow(t, 1.2)
	return &out
}

func pick(fallback float64, candidates ...*float64) float64 {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return fallback
}
