package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/pipeline"
)

var (
	batchInput       string
	batchOutput      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score every point in a CSV file",
	Long: `Reads a CSV with lat and lng columns (and an optional id column) and
writes one scored row per input row. Rows that fail validation are written
with the error column set; they never abort the batch.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(cfg, "batch")
		if err != nil {
			return err
		}

		in, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrap(err, "batch: open input")
		}
		defer in.Close() //nolint:errcheck

		rows, err := readPoints(in)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		warmDataset(env.Dataset)
		results := processBatch(ctx, rows, concurrency, env.Pipeline.Evaluate)
		return writeResults(out, results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV file with lat,lng[,id] columns (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output CSV path (default stdout)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "points evaluated in parallel (default from config)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// batchRow is one parsed input line.
type batchRow struct {
	Line  int
	ID    string
	Lat   string
	Lng   string
	Point model.Point
	Err   error
}

// batchResult pairs an input row with its report or error.
type batchResult struct {
	Row    batchRow
	Report *pipeline.Report
	Err    error
}

// evalFunc is the callback signature for evaluating one query.
type evalFunc func(ctx context.Context, q pipeline.Query) (*pipeline.Report, error)

// readPoints parses a CSV with a header row. Column names are matched
// case-insensitively; "lon" and "longitude" are accepted for lng.
func readPoints(r io.Reader) ([]batchRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "batch: read header")
	}

	latIdx, lngIdx, idIdx := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lat", "latitude":
			latIdx = i
		case "lng", "lon", "longitude":
			lngIdx = i
		case "id":
			idIdx = i
		}
	}
	if latIdx < 0 || lngIdx < 0 {
		return nil, eris.New("batch: header must contain lat and lng columns")
	}

	var rows []batchRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "batch: read line %d", line)
		}

		row := batchRow{Line: line, Lat: field(rec, latIdx), Lng: field(rec, lngIdx), ID: field(rec, idIdx)}
		if row.ID == "" {
			row.ID = strconv.Itoa(line - 1)
		}
		row.Point, row.Err = model.ParsePoint(row.Lat, row.Lng)
		rows = append(rows, row)
	}
	return rows, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// processBatch evaluates rows with at most concurrency points in flight.
// Results keep input order.
func processBatch(ctx context.Context, rows []batchRow, concurrency int, eval evalFunc) []batchResult {
	results := make([]batchResult, len(rows))
	if len(rows) == 0 {
		zap.L().Info("batch: no points to process")
		return results
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("batch: processing",
		zap.Int("points", len(rows)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, row := range rows {
		results[i].Row = row
		if row.Err != nil {
			results[i].Err = row.Err
			failed.Add(1)
			continue
		}
		g.Go(func() error {
			report, err := eval(gctx, pipeline.Query{Point: row.Point})
			if err != nil {
				failed.Add(1)
				results[i].Err = err
				zap.L().Warn("batch: point failed", zap.String("id", row.ID), zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			results[i].Report = report
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch: complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}

var resultHeader = []string{"id", "lat", "lng", "score01", "score_signed", "color", "density_mean", "aqi", "noise_db", "error"}

// writeResults writes one CSV line per result. Missing signals are empty.
func writeResults(w io.Writer, results []batchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return eris.Wrap(err, "batch: write header")
	}

	for _, res := range results {
		rec := []string{res.Row.ID, res.Row.Lat, res.Row.Lng, "", "", "", "", "", "", ""}
		if res.Err != nil {
			rec[9] = res.Err.Error()
		}
		if r := res.Report; r != nil {
			rec[3] = formatFloat(&r.Frustration.Score01)
			rec[4] = formatFloat(&r.Frustration.ScoreSigned)
			rec[5] = r.Frustration.Color
			rec[6] = formatFloat(r.Raw.DensityMean)
			rec[7] = formatFloat(r.Raw.AQI)
			rec[8] = formatFloat(r.Raw.NoiseDB)
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "batch: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "batch: flush")
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
