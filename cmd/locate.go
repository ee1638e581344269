package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/region"
)

var (
	locateLat string
	locateLng string
)

// locateOutput adds the matched region id to the density result.
type locateOutput struct {
	RegionID string `json:"regionId,omitempty"`
	region.DensityResult
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Look up the region and population statistics for a point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := model.ParsePoint(locateLat, locateLng)
		if err != nil {
			return err
		}

		if err := cfg.Validate("locate"); err != nil {
			return err
		}
		res, err := region.NewDensityResolver(region.NewDataset(cfg.Dataset.Path)).Resolve(p)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), locateOutput{RegionID: res.RegionID, DensityResult: res})
	},
}

func init() {
	locateCmd.Flags().StringVar(&locateLat, "lat", "", "latitude in degrees (required)")
	locateCmd.Flags().StringVar(&locateLng, "lng", "", "longitude in degrees (required)")
	_ = locateCmd.MarkFlagRequired("lat")
	_ = locateCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(locateCmd)
}
