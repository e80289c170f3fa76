package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/floratings/internal/observability"
	"github.com/3leaps/floratings/pkg/progress"
	"github.com/3leaps/floratings/pkg/rating"
	"github.com/3leaps/floratings/pkg/wstore"
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Replay a Glicko-2 rating pass over the stored match history",
	Long: `Replay the full Glicko-2 rating engine over matches ingested by
crawl, bucketing them into monthly periods per weight class, and persist
the resulting ratings to the store. A JSON snapshot is also written to
--output-dir for each tau supplied.

Example:
  gonimbus-ratings rate --tau 0.5
  gonimbus-ratings rate --tau 0.3 --tau 0.5 --tau 0.8 --output-dir build`,
	RunE: runRate,
}

var (
	rateStorePath string
	rateOutputDir string
	rateTaus      []float64
	rateStartDate string
	rateEndDate   string
	rateQuiet     bool
)

func init() {
	rootCmd.AddCommand(rateCmd)
	rateCmd.Flags().StringVar(&rateStorePath, "store-path", "data.db", "Path to the sqlite store")
	rateCmd.Flags().StringVar(&rateOutputDir, "output-dir", "build", "Directory to write rating snapshot JSON into")
	rateCmd.Flags().Float64SliceVar(&rateTaus, "tau", []float64{rating.DefaultTau}, "Volatility constraint to replay (repeatable)")
	rateCmd.Flags().StringVar(&rateStartDate, "start-date", "", "Only replay matches on or after this date (YYYY-MM-DD)")
	rateCmd.Flags().StringVar(&rateEndDate, "end-date", "", "Only replay matches on or before this date (YYYY-MM-DD)")
	rateCmd.Flags().BoolVarP(&rateQuiet, "quiet", "q", false, "Suppress progress records")
}

func runRate(cmd *cobra.Command, args []string) error {
	var start, end time.Time
	var err error
	if rateStartDate != "" {
		start, err = time.Parse(dateLayout, rateStartDate)
		if err != nil {
			return exitError(1, "invalid --start-date", err)
		}
	}
	if rateEndDate != "" {
		end, err = time.Parse(dateLayout, rateEndDate)
		if err != nil {
			return exitError(1, "invalid --end-date", err)
		}
	}
	return executeRate(cmd.Context(), rateStorePath, rateOutputDir, rateTaus, start, end)
}

func executeRate(ctx context.Context, storePath, outputDir string, taus []float64, start, end time.Time) error {
	db, err := wstore.Open(ctx, wstore.Config{Path: storePath})
	if err != nil {
		return exitError(1, "Failed to open store", err)
	}
	defer db.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return exitError(1, "Failed to create output directory", err)
	}

	names, err := wstore.WrestlerNames(ctx, db)
	if err != nil {
		return exitError(1, "Failed to load wrestler names", err)
	}

	var sink progress.Sink = progress.NoopSink{}
	if !rateQuiet {
		sink = progress.NewJSONLSink(os.Stdout, "rate")
	}

	for _, tau := range taus {
		started := time.Now()
		observability.CLILogger.Info("Starting rating replay", zap.Float64("tau", tau))

		replay, err := rating.RunReplay(ctx, db, tau, start, end, sink)
		if err != nil {
			observability.CLILogger.Error("Rating replay failed", zap.Float64("tau", tau), zap.Error(err))
			return exitError(1, "Rating replay failed", err)
		}

		now := time.Now()
		payload := rating.BuildPayload(replay, names, now)

		if err := rating.Persist(ctx, db, payload, now); err != nil {
			observability.CLILogger.Error("Failed to persist ratings", zap.Float64("tau", tau), zap.Error(err))
			return exitError(1, "Failed to persist ratings", err)
		}

		outputPath := filepath.Join(outputDir, fmt.Sprintf("glicko2_tau-%.3f.json", tau))
		if err := writeJSONFile(outputPath, payload); err != nil {
			return exitError(1, "Failed to write rating snapshot", err)
		}

		_ = sink.WriteReplaySummary(ctx, &progress.ReplaySummaryRecord{
			Tau:           tau,
			TotalPeriods:  len(replay.Periods),
			WeightClasses: len(replay.States),
			Duration:      time.Since(started),
			DurationHuman: time.Since(started).Round(time.Millisecond).String(),
		})

		observability.CLILogger.Info("Rating replay completed",
			zap.Float64("tau", tau),
			zap.Int("total_periods", len(replay.Periods)),
			zap.Int("weight_classes", len(replay.States)),
			zap.String("output", outputPath))
	}

	return nil
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0644)
}
