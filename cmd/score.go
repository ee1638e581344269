package main

import (
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/pipeline"
	"github.com/sells-group/livability-cli/internal/scorer"
)

var (
	scoreLat     string
	scoreLng     string
	scoreProfile string
	scoreRent    float64
	scoreTransit float64
	scoreSummary bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Evaluate a point and print the full report",
	Example: `  livability score --lat 40.7128 --lng -74.0060
  livability score --lat 30.27 --lng -97.74 --weights quiet.yaml --rent 1850 --summary`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := model.ParsePoint(scoreLat, scoreLng)
		if err != nil {
			return err
		}

		env, err := initEnv(cfg, "score")
		if err != nil {
			return err
		}

		q := pipeline.Query{Point: p, Summary: scoreSummary}
		if scoreProfile != "" {
			prof, err := scorer.LoadProfile(scoreProfile)
			if err != nil {
				return err
			}
			q.Weights = prof.Resolve()
		}
		if cmd.Flags().Changed("rent") {
			q.Overrides.RentUSD = scorer.Ptr(scoreRent)
		}
		if cmd.Flags().Changed("transit") {
			q.Overrides.TransitGood01 = scorer.Ptr(scoreTransit)
		}

		report, err := env.Pipeline.Evaluate(ctx, q)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreLat, "lat", "", "latitude in degrees (required)")
	scoreCmd.Flags().StringVar(&scoreLng, "lng", "", "longitude in degrees (required)")
	scoreCmd.Flags().StringVar(&scoreProfile, "weights", "", "weight profile YAML (weights or preferences)")
	scoreCmd.Flags().Float64Var(&scoreRent, "rent", 0, "monthly rent in USD")
	scoreCmd.Flags().Float64Var(&scoreTransit, "transit", 0, "transit quality 0..1 (1 = excellent)")
	scoreCmd.Flags().BoolVar(&scoreSummary, "summary", false, "ask the LLM for a short summary")
	_ = scoreCmd.MarkFlagRequired("lat")
	_ = scoreCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(scoreCmd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "write json")
	}
	return nil
}
