package waterfall

import (
	"time"

	"github.com/sells-group/livability-cli/internal/waterfall/provider"
)

// Signals with a configured fallback chain.
const (
	SignalNoise      = "noise"
	SignalAirQuality = "air_quality"
)

// Messages for chain-level misses.
const (
	MsgNoProvider = "no provider returned a value"
	MsgCancelled  = "query cancelled before a provider returned a value"
	MsgNoSample   = "no modeled value near this point within the sample radius"
)

// Attempt records one strategy invocation.
type Attempt struct {
	Provider string        `json:"provider"`
	Found    bool          `json:"found"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is a resolved signal. Attempts stay out of the wire format.
type Result struct {
	provider.Result
	Attempts []Attempt `json:"-"`
}

// SampledResult is a Result found by spatial sampling.
type SampledResult struct {
	Result
	SampledOffsetMeters *float64 `json:"sampledOffsetMeters,omitempty"`
	SampleDirection     string   `json:"sampleDirection,omitempty"`
}
