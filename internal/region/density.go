package region

import (
	"go.uber.org/zap"

	"github.com/sells-group/livability-cli/internal/model"
)

// Messages carried by DensityResult on a miss or a dataset failure.
const (
	MsgNotFound   = "Location not found in dataset"
	MsgLoadFailed = "Failed to fetch population data"
)

// DensityResult is the population statistics lookup outcome. On a miss every
// stat is null and Message is set; on dataset failure Error is set instead.
type DensityResult struct {
	Stats
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	RegionID string `json:"-"`
}

// Found reports whether the point matched a region.
func (r DensityResult) Found() bool {
	return r.Message == "" && r.Error == ""
}

// DensityResolver answers density queries against a Dataset.
type DensityResolver struct {
	dataset *Dataset
}

// NewDensityResolver creates a resolver over ds.
func NewDensityResolver(ds *Dataset) *DensityResolver {
	return &DensityResolver{dataset: ds}
}

// Resolve validates p and looks it up. Only invalid input is returned as an
// error; dataset problems produce an error-shaped result.
func (r *DensityResolver) Resolve(p model.Point) (DensityResult, error) {
	if err := p.Validate(); err != nil {
		return DensityResult{}, err
	}

	regions, err := r.dataset.Load()
	if err != nil {
		zap.L().Warn("region: density lookup without dataset",
			zap.String("point", p.String()),
			zap.Error(err),
		)
		return DensityResult{Error: MsgLoadFailed}, nil
	}

	reg, ok := Locate(regions, p)
	if !ok {
		return DensityResult{Message: MsgNotFound}, nil
	}
	return DensityResult{Stats: reg.Stats, RegionID: reg.ID}, nil
}
