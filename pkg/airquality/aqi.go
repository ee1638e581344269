package airquality

import "math"

// breakpoint is one row of the EPA PM2.5 table.
type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

// pm25Breakpoints is the EPA table revised in 2024 (µg/m³, 24-hour).
var pm25Breakpoints = []breakpoint{
	{0.0, 9.0, 0, 50},
	{9.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 125.4, 151, 200},
	{125.5, 225.4, 201, 300},
	{225.5, 325.4, 301, 500},
}

// PM25ToAQI converts a PM2.5 concentration to a US AQI value. Input is
// truncated to one decimal per the EPA method; anything above the table
// reports 500.
func PM25ToAQI(pm25 float64) int {
	if math.IsNaN(pm25) || pm25 <= 0 {
		return 0
	}
	c := math.Floor(pm25*10) / 10
	for _, bp := range pm25Breakpoints {
		if c <= bp.cHigh {
			if c < bp.cLow {
				c = bp.cLow
			}
			aqi := (bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(c-bp.cLow) + bp.iLow
			return int(math.Round(aqi))
		}
	}
	return 500
}
