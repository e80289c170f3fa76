package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/floratings/internal/observability"
	"github.com/3leaps/floratings/pkg/evaluator"
	"github.com/3leaps/floratings/pkg/rating"
	"github.com/3leaps/floratings/pkg/wstore"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure how well a Glicko-2 replay predicts held-out matches",
	Long: `Replay matches up to --train-end to build a rating snapshot, then
score that snapshot's win probabilities against matches in
[--eval-start, --eval-end]. Reports mean log-loss, mean Brier score, and
accuracy for every --tau supplied.

Example:
  gonimbus-ratings evaluate --train-end 2024-01-01 --tau 0.3 --tau 0.5`,
	RunE: runEvaluate,
}

var (
	evaluateStorePath  string
	evaluateOutputDir  string
	evaluateTaus       []float64
	evaluateStartDate  string
	evaluateEndDate    string
	evaluateTrainEnd   string
	evaluateEvalStart  string
	evaluateEvalEnd    string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evaluateStorePath, "store-path", "data.db", "Path to the sqlite store")
	evaluateCmd.Flags().StringVar(&evaluateOutputDir, "output-dir", "build", "Directory to write the evaluation report JSON into")
	evaluateCmd.Flags().Float64SliceVar(&evaluateTaus, "tau", []float64{rating.DefaultTau}, "Volatility constraint to evaluate (repeatable)")
	evaluateCmd.Flags().StringVar(&evaluateStartDate, "start-date", "", "Only load matches on or after this date (YYYY-MM-DD)")
	evaluateCmd.Flags().StringVar(&evaluateEndDate, "end-date", "", "Only load matches on or before this date (YYYY-MM-DD)")
	evaluateCmd.Flags().StringVar(&evaluateTrainEnd, "train-end", "", "Matches at or before 00:00 UTC of this date are used to build the rating snapshot (required, YYYY-MM-DD)")
	evaluateCmd.Flags().StringVar(&evaluateEvalStart, "eval-start", "", "Matches at or after 00:00 UTC of this date are scored (defaults to one second after --train-end)")
	evaluateCmd.Flags().StringVar(&evaluateEvalEnd, "eval-end", "", "Matches at or before 00:00 UTC of this date are scored (defaults to unbounded)")
	_ = evaluateCmd.MarkFlagRequired("train-end")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	trainEnd, err := time.Parse(dateLayout, evaluateTrainEnd)
	if err != nil {
		return exitError(1, "invalid --train-end", err)
	}

	var start, end, evalStart, evalEnd time.Time
	if evaluateStartDate != "" {
		if start, err = time.Parse(dateLayout, evaluateStartDate); err != nil {
			return exitError(1, "invalid --start-date", err)
		}
	}
	if evaluateEndDate != "" {
		if end, err = time.Parse(dateLayout, evaluateEndDate); err != nil {
			return exitError(1, "invalid --end-date", err)
		}
	}
	if evaluateEvalStart != "" {
		if evalStart, err = time.Parse(dateLayout, evaluateEvalStart); err != nil {
			return exitError(1, "invalid --eval-start", err)
		}
	}
	if evaluateEvalEnd != "" {
		if evalEnd, err = time.Parse(dateLayout, evaluateEvalEnd); err != nil {
			return exitError(1, "invalid --eval-end", err)
		}
	}

	db, err := wstore.Open(cmd.Context(), wstore.Config{Path: evaluateStorePath})
	if err != nil {
		return exitError(1, "Failed to open store", err)
	}
	defer db.Close()

	if err := os.MkdirAll(evaluateOutputDir, 0755); err != nil {
		return exitError(1, "Failed to create output directory", err)
	}

	observability.CLILogger.Info("Starting evaluation",
		zap.Strings("taus", formatTaus(evaluateTaus)),
		zap.String("train_end", evaluateTrainEnd))

	summary, err := evaluator.Run(cmd.Context(), db, evaluateTaus, start, end, trainEnd, evalStart, evalEnd, time.Now())
	if err != nil {
		observability.CLILogger.Error("Evaluation failed", zap.Error(err))
		return exitError(1, "Evaluation failed", err)
	}

	outputPath := filepath.Join(evaluateOutputDir, "evaluation.json")
	if err := writeJSONFile(outputPath, summary); err != nil {
		return exitError(1, "Failed to write evaluation report", err)
	}

	for _, r := range summary.Results {
		observability.CLILogger.Info("Evaluation result",
			zap.Float64("tau", r.Tau),
			zap.Int("matches", r.Matches),
			zap.Float64("log_loss", r.LogLoss),
			zap.Float64("brier", r.Brier),
			zap.Float64("accuracy", r.Accuracy))
	}
	observability.CLILogger.Info("Evaluation completed", zap.String("output", outputPath))

	return nil
}

func formatTaus(taus []float64) []string {
	out := make([]string, len(taus))
	for i, t := range taus {
		out[i] = fmt.Sprintf("%g", t)
	}
	return out
}
