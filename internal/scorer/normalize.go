package scorer

import "math"

// Missing is the badness assigned to a signal with no usable value.
const Missing = 0.5

// Ptr returns a pointer to v. Handy for building RawSignals literals.
func Ptr(v float64) *float64 { return &v }

func isMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// value maps an optional reading to NaN when absent.
func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// NormDensity maps mean population per km² to badness with a piecewise
// saturating curve.
func NormDensity(mean float64) float64 {
	switch {
	case isMissing(mean):
		return Missing
	case mean <= 1:
		return 0.05
	case mean <= 10:
		return 0.15
	case mean <= 50:
		return 0.30
	case mean <= 200:
		return 0.50
	case mean <= 1000:
		return 0.75
	case mean <= 2000:
		return 0.90
	default:
		return 1.0
	}
}

// NormAQI maps a US AQI reading to badness.
func NormAQI(aqi float64) float64 {
	switch {
	case isMissing(aqi):
		return Missing
	case aqi <= 50:
		return 0.1
	case aqi <= 100:
		return 0.3
	case aqi <= 150:
		return 0.6
	case aqi <= 200:
		return 0.8
	default:
		return 1.0
	}
}

// NormNoiseDB is linear from 40 dB (calm) to 85 dB (loud).
func NormNoiseDB(db float64) float64 {
	if isMissing(db) {
		return Missing
	}
	return clamp01((db - 40) / (85 - 40))
}

// NormRent is linear from 600 USD to 4000 USD per month.
func NormRent(usd float64) float64 {
	if isMissing(usd) {
		return Missing
	}
	return clamp01((usd - 600) / (4000 - 600))
}

// NormTransitPain inverts a 0..1 transit goodness score.
func NormTransitPain(good01 float64) float64 {
	if isMissing(good01) {
		return Missing
	}
	return clamp01(1 - good01)
}
