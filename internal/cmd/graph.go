package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/floratings/internal/observability"
	"github.com/3leaps/floratings/pkg/graphexport"
	"github.com/3leaps/floratings/pkg/wstore"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the match history as a node/edge graph document",
	Long: `Render the stored match history into a node/edge graph document
colored by win percentage and sized by total matches played, suitable for
force-directed graph viewers, written to --output-dir/graph.json.

Example:
  gonimbus-ratings graph --weight-class 157 --weight-class 165`,
	RunE: runGraph,
}

var (
	graphStorePath    string
	graphOutputDir    string
	graphWeightClass  []string
	graphStartDate    string
	graphEndDate      string
)

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVar(&graphStorePath, "store-path", "data.db", "Path to the sqlite store")
	graphCmd.Flags().StringVar(&graphOutputDir, "output-dir", "build", "Directory to write graph.json into")
	graphCmd.Flags().StringSliceVar(&graphWeightClass, "weight-class", nil, "Restrict the graph to these weight classes (repeatable)")
	graphCmd.Flags().StringVar(&graphStartDate, "start-date", "", "Only include matches on or after this date (YYYY-MM-DD)")
	graphCmd.Flags().StringVar(&graphEndDate, "end-date", "", "Only include matches on or before this date (YYYY-MM-DD)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	db, err := wstore.Open(cmd.Context(), wstore.Config{Path: graphStorePath})
	if err != nil {
		return exitError(1, "Failed to open store", err)
	}
	defer db.Close()

	if err := ensureDir(graphOutputDir); err != nil {
		return exitError(1, "Failed to create output directory", err)
	}

	filter := graphexport.Filter{
		WeightClasses: graphWeightClass,
		Start:         graphStartDate,
		End:           graphEndDate,
	}

	graph, err := graphexport.Run(cmd.Context(), db, filter, nil)
	if err != nil {
		observability.CLILogger.Error("Failed to export graph", zap.Error(err))
		return exitError(1, "Failed to export graph", err)
	}

	outputPath := filepath.Join(graphOutputDir, "graph.json")
	if err := writeJSONFile(outputPath, graph); err != nil {
		return exitError(1, "Failed to write graph", err)
	}

	observability.CLILogger.Info("Graph exported",
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
		zap.String("output", outputPath))

	return nil
}
