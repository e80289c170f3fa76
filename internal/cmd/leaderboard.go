package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/floratings/internal/observability"
	"github.com/3leaps/floratings/pkg/leaderboard"
	"github.com/3leaps/floratings/pkg/wstore"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank persisted ratings within each weight class",
	Long: `Rank every wrestler with a persisted rating within their weight
class by a conservative score (rating - 2*RD), and write the result to
--output-dir/leaderboards.json.

Example:
  gonimbus-ratings leaderboard --limit 25`,
	RunE: runLeaderboard,
}

var (
	leaderboardStorePath      string
	leaderboardOutputDir      string
	leaderboardLimit          int
	leaderboardMinLastUpdated string
)

func init() {
	rootCmd.AddCommand(leaderboardCmd)
	leaderboardCmd.Flags().StringVar(&leaderboardStorePath, "store-path", "data.db", "Path to the sqlite store")
	leaderboardCmd.Flags().StringVar(&leaderboardOutputDir, "output-dir", "build", "Directory to write leaderboards.json into")
	leaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", 0, "Maximum wrestlers per weight class (0 = unlimited)")
	leaderboardCmd.Flags().StringVar(&leaderboardMinLastUpdated, "min-last-updated", "", "Exclude wrestlers not rated since this date (YYYY-MM-DD)")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	db, err := wstore.Open(cmd.Context(), wstore.Config{Path: leaderboardStorePath})
	if err != nil {
		return exitError(1, "Failed to open store", err)
	}
	defer db.Close()

	if err := ensureDir(leaderboardOutputDir); err != nil {
		return exitError(1, "Failed to create output directory", err)
	}

	payload, err := leaderboard.Run(cmd.Context(), db, leaderboardLimit, leaderboardMinLastUpdated, time.Now())
	if err != nil {
		observability.CLILogger.Error("Failed to build leaderboard", zap.Error(err))
		return exitError(1, "Failed to build leaderboard", err)
	}

	outputPath := filepath.Join(leaderboardOutputDir, "leaderboards.json")
	if err := writeJSONFile(outputPath, payload); err != nil {
		return exitError(1, "Failed to write leaderboard", err)
	}

	observability.CLILogger.Info("Leaderboard built",
		zap.Int("weight_classes", len(payload.WeightClasses)),
		zap.String("output", outputPath))

	return nil
}
