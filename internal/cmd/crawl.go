package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/floratings/internal/observability"
	"github.com/3leaps/floratings/pkg/crawler"
	"github.com/3leaps/floratings/pkg/fetcher"
	"github.com/3leaps/floratings/pkg/manifest"
	"github.com/3leaps/floratings/pkg/progress"
	"github.com/3leaps/floratings/pkg/wstore"
)

const dateLayout = "2006-01-02"

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Walk the opponent graph from a seed wrestler and ingest match history",
	Long: `Run a resumable breadth-first crawl of the opponent graph starting
from a seed wrestler, ingesting match results into the local store as it
goes. A crawl can be resumed: rerunning with the same seed picks the
frontier back up where it left off.

Flags may be supplied directly, or defaulted from a manifest file.

Example:
  gonimbus-ratings crawl --seed 064ad7f4-8d16-4dd2-94b1-1dd1c45c3832 --depth-limit 3
  gonimbus-ratings crawl --manifest crawl.yaml
  gonimbus-ratings crawl --manifest crawl.yaml --dry-run`,
	RunE: runCrawl,
}

var (
	crawlManifestPath string
	crawlSeed         string
	crawlDepthLimit   int
	crawlReset        bool
	crawlWeightClass  []string
	crawlStartDate    string
	crawlEndDate      string
	crawlStorePath    string
	crawlRateLimit    float64
	crawlQuiet        bool
	crawlDryRun       bool
)

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&crawlManifestPath, "manifest", "", "Path to a crawl-defaults manifest (YAML or JSON)")
	crawlCmd.Flags().StringVar(&crawlSeed, "seed", "", "Wrestler ID to start the crawl from")
	crawlCmd.Flags().IntVar(&crawlDepthLimit, "depth-limit", 0, "Maximum opponent-graph depth to walk")
	crawlCmd.Flags().BoolVar(&crawlReset, "reset", false, "Clear prior crawler state before starting")
	crawlCmd.Flags().StringSliceVar(&crawlWeightClass, "weight-class", nil, "Restrict ingested matches to these weight classes (repeatable)")
	crawlCmd.Flags().StringVar(&crawlStartDate, "start-date", "", "Only ingest matches on or after this date (YYYY-MM-DD)")
	crawlCmd.Flags().StringVar(&crawlEndDate, "end-date", "", "Only ingest matches on or before this date (YYYY-MM-DD)")
	crawlCmd.Flags().StringVar(&crawlStorePath, "store-path", "", "Path to the sqlite store")
	crawlCmd.Flags().Float64Var(&crawlRateLimit, "rate-limit", 0, "Maximum outbound requests per second (0 = unlimited)")
	crawlCmd.Flags().BoolVarP(&crawlQuiet, "quiet", "q", false, "Suppress progress records")
	crawlCmd.Flags().BoolVar(&crawlDryRun, "dry-run", false, "Show the resolved crawl plan without executing")
}

// resolvedCrawl is the crawler.Config plus the store path, merged from an
// optional manifest and CLI flag overrides (flags win).
type resolvedCrawl struct {
	crawler.Config
	StorePath string
}

func resolveCrawl(cmd *cobra.Command) (resolvedCrawl, error) {
	rc := resolvedCrawl{Config: crawler.DefaultConfig(), StorePath: "data.db"}

	if crawlManifestPath != "" {
		m, err := manifest.Load(crawlManifestPath)
		if err != nil {
			return rc, fmt.Errorf("load manifest: %w", err)
		}
		if m.Seed != "" {
			rc.Seed = m.Seed
		}
		if m.DepthLimit != 0 {
			rc.DepthLimit = m.DepthLimit
		}
		rc.Reset = m.Reset
		rc.WeightClasses = m.WeightClasses
		rc.RateLimit = m.RateLimit
		if m.StorePath != "" {
			rc.StorePath = m.StorePath
		}
		if m.StartDate != "" {
			t, err := time.Parse(dateLayout, m.StartDate)
			if err != nil {
				return rc, fmt.Errorf("manifest start_date: %w", err)
			}
			rc.StartDate = t
		}
		if m.EndDate != "" {
			t, err := time.Parse(dateLayout, m.EndDate)
			if err != nil {
				return rc, fmt.Errorf("manifest end_date: %w", err)
			}
			rc.EndDate = t
		}
	}

	if cmd.Flags().Changed("seed") {
		rc.Seed = crawlSeed
	}
	if cmd.Flags().Changed("depth-limit") {
		rc.DepthLimit = crawlDepthLimit
	}
	if cmd.Flags().Changed("reset") {
		rc.Reset = crawlReset
	}
	if cmd.Flags().Changed("weight-class") {
		rc.WeightClasses = crawlWeightClass
	}
	if cmd.Flags().Changed("rate-limit") {
		rc.RateLimit = crawlRateLimit
	}
	if cmd.Flags().Changed("store-path") {
		rc.StorePath = crawlStorePath
	}
	if cmd.Flags().Changed("start-date") {
		t, err := time.Parse(dateLayout, crawlStartDate)
		if err != nil {
			return rc, fmt.Errorf("--start-date: %w", err)
		}
		rc.StartDate = t
	}
	if cmd.Flags().Changed("end-date") {
		t, err := time.Parse(dateLayout, crawlEndDate)
		if err != nil {
			return rc, fmt.Errorf("--end-date: %w", err)
		}
		rc.EndDate = t
	}

	if rc.Seed == "" {
		rc.Seed = crawler.DefaultSeed
	}

	return rc, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	rc, err := resolveCrawl(cmd)
	if err != nil {
		return exitError(1, "invalid crawl configuration", err)
	}

	if crawlDryRun {
		showCrawlPlan(rc)
		return nil
	}

	return executeCrawl(cmd.Context(), rc)
}

func showCrawlPlan(rc resolvedCrawl) {
	fmt.Println("=== Crawl Plan (dry-run) ===")
	fmt.Println()
	fmt.Printf("Seed:          %s\n", rc.Seed)
	fmt.Printf("Depth limit:   %d\n", rc.DepthLimit)
	fmt.Printf("Reset state:   %v\n", rc.Reset)
	if len(rc.WeightClasses) > 0 {
		fmt.Printf("Weight classes: %v\n", rc.WeightClasses)
	}
	if !rc.StartDate.IsZero() {
		fmt.Printf("Start date:    %s\n", rc.StartDate.Format(dateLayout))
	}
	if !rc.EndDate.IsZero() {
		fmt.Printf("End date:      %s\n", rc.EndDate.Format(dateLayout))
	}
	if rc.RateLimit > 0 {
		fmt.Printf("Rate limit:    %.1f req/s\n", rc.RateLimit)
	}
	fmt.Printf("Store path:    %s\n", rc.StorePath)
	fmt.Println()
	fmt.Println("Remove --dry-run to execute.")
}

func executeCrawl(ctx context.Context, rc resolvedCrawl) error {
	db, err := wstore.Open(ctx, wstore.Config{Path: rc.StorePath})
	if err != nil {
		observability.CLILogger.Error("Failed to open store", zap.Error(err))
		return exitError(1, "Failed to open store", err)
	}
	defer db.Close()

	f := fetcher.New(fetcher.Config{RateLimit: rc.RateLimit})

	var sink progress.Sink = progress.NoopSink{}
	if !crawlQuiet {
		sink = progress.NewJSONLSink(os.Stdout, rc.Seed)
	}

	c := crawler.New(db, f, sink)

	observability.CLILogger.Info("Starting crawl",
		zap.String("seed", rc.Seed),
		zap.Int("depth_limit", rc.DepthLimit))

	summary, err := c.Run(ctx, rc.Config)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Crawl cancelled", zap.Int("processed", summary.Processed))
			return exitError(1, "Crawl cancelled", err)
		}
		observability.CLILogger.Error("Crawl failed", zap.Error(err))
		return exitError(1, "Crawl failed", err)
	}

	observability.CLILogger.Info("Crawl completed",
		zap.Int("processed", summary.Processed),
		zap.Int("seen_count", summary.SeenCount),
		zap.Int("matches_ingested", summary.MatchesIngested),
		zap.Int("matches_skipped", summary.MatchesSkipped),
		zap.Duration("duration", summary.Duration))

	return nil
}
