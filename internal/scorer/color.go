package scorer

// Color buckets from most pleasant to most frustrating.
const (
	ColorDeepGreen = "#2DC937"
	ColorGreen     = "#7DCB3A"
	ColorYellowish = "#C9D73A"
	ColorAmber     = "#E7B416"
	ColorOrange    = "#DB7B2B"
	ColorRed       = "#CC3232"
)

// ColorForSigned returns the bucket color for a signed score.
func ColorForSigned(s float64) string {
	switch {
	case s <= -3:
		return ColorDeepGreen
	case s <= -2:
		return ColorGreen
	case s < 0:
		return ColorYellowish
	case s < 2:
		return ColorAmber
	case s < 3:
		return ColorOrange
	default:
		return ColorRed
	}
}
