// Package scorer blends normalized livability signals into a frustration
// score and maps it onto a display color.
package scorer

import "math"

// RawSignals are the unnormalized readings for a point. Nil means missing.
type RawSignals struct {
	DensityMean   *float64 `json:"densityMean"`
	AQI           *float64 `json:"aqi"`
	NoiseDB       *float64 `json:"noiseDb"`
	RentUSD       *float64 `json:"rentUsd"`
	TransitGood01 *float64 `json:"transitGood01"`
}

// Parts are the per-factor badness values in [0,1].
type Parts struct {
	Density01 float64 `json:"density01"`
	AQI01     float64 `json:"aqi01"`
	Noise01   float64 `json:"noise01"`
	Rent01    float64 `json:"rent01"`
	Transit01 float64 `json:"transit01"`
}

func (p Parts) value(f Factor) float64 {
	switch f {
	case FactorDensity:
		return p.Density01
	case FactorAQI:
		return p.AQI01
	case FactorNoise:
		return p.Noise01
	case FactorRent:
		return p.Rent01
	case FactorTransit:
		return p.Transit01
	}
	return 0
}

// Score is the blended result.
type Score struct {
	Score01     float64 `json:"score01"`
	ScoreSigned float64 `json:"scoreSigned"`
	Parts       Parts   `json:"parts"`
	UsedWeights Weights `json:"usedWeights"`
	Color       string  `json:"color"`
}

// Compute normalizes raw, blends it with w merged over the defaults and
// returns the bounded score.
func Compute(raw RawSignals, w Weights) Score {
	parts := Parts{
		Density01: NormDensity(value(raw.DensityMean)),
		AQI01:     NormAQI(value(raw.AQI)),
		Noise01:   NormNoiseDB(value(raw.NoiseDB)),
		Rent01:    NormRent(value(raw.RentUSD)),
		Transit01: NormTransitPain(value(raw.TransitGood01)),
	}

	used := NormalizeWeights(w)
	var blended float64
	for _, f := range Factors {
		blended += parts.value(f) * used[f]
	}
	score01 := clamp01(blended)
	signed := ToSigned(score01)

	return Score{
		Score01:     score01,
		ScoreSigned: signed,
		Parts:       parts,
		UsedWeights: used,
		Color:       ColorForSigned(signed),
	}
}

// ToSigned maps [0,1] badness onto [-10,10].
func ToSigned(score01 float64) float64 {
	return math.Max(-10, math.Min(10, score01*20-10))
}
