package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/floratings/internal/config"
	"github.com/3leaps/floratings/internal/observability"
	"github.com/3leaps/floratings/pkg/fetcher"
	"github.com/3leaps/floratings/pkg/wstore"
)

var doctorStorePath string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the local store, configuration, and upstream
API reachability.

Examples:
  gonimbus-ratings doctor
  gonimbus-ratings doctor --store-path ./data.db`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVar(&doctorStorePath, "store-path", "", "Path to the sqlite store (defaults to the configured rating.store_path)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	identity := GetAppIdentity()
	bannerName := "doctor"
	if identity != nil && identity.BinaryName != "" {
		bannerName = identity.BinaryName + " doctor"
	}
	observability.CLILogger.Info("=== " + bannerName + " ===")
	observability.CLILogger.Info("")

	allChecks := true
	checkNum := 1
	totalChecks := 6

	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking Go version... ok (%s)", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking Go version... warn (%s, recommended go1.23+)", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
		allChecks = false
	}
	checkNum++

	cfg := config.GetConfig()
	storePath := doctorStorePath
	if storePath == "" && cfg != nil {
		storePath = cfg.Rating.StorePath
	}
	if storePath == "" {
		storePath = "data.db"
	}

	db, err := wstore.Open(cmd.Context(), wstore.Config{Path: storePath})
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking store connectivity... failed", checkNum, totalChecks), zap.Error(err))
		allChecks = false
		checkNum++ // the schema-version check is skipped
	} else {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking store connectivity... ok (%s)", checkNum, totalChecks, storePath),
			zap.String("store_path", storePath))
		checkNum++

		var version int
		if scanErr := db.QueryRowContext(cmd.Context(), `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&version); scanErr != nil {
			observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking schema version... failed", checkNum, totalChecks), zap.Error(scanErr))
			allChecks = false
		} else if version != wstore.SchemaVersion {
			observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking schema version... stale (have %d, want %d)", checkNum, totalChecks, version, wstore.SchemaVersion))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking schema version... ok (v%d)", checkNum, totalChecks, version),
				zap.Int("schema_version", version))
		}
		_ = db.Close()
	}
	checkNum++

	baseURL := fetcher.BaseURL
	if cfg != nil && cfg.Rating.APIBaseURL != "" {
		baseURL = cfg.Rating.APIBaseURL
	}
	if reachable, reachErr := checkUpstreamReachable(cmd.Context(), baseURL); reachErr != nil {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking upstream API... unreachable (%s)", checkNum, totalChecks, baseURL), zap.Error(reachErr))
		allChecks = false
	} else if !reachable {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking upstream API... unexpected response from %s", checkNum, totalChecks, baseURL))
		allChecks = false
	} else {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking upstream API... ok (%s)", checkNum, totalChecks, baseURL),
			zap.String("api_base_url", baseURL))
	}
	checkNum++

	configDir, err := os.UserConfigDir()
	if err != nil {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking config directory... unavailable", checkNum, totalChecks), zap.Error(err))
	} else {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking config directory... ok (%s)", checkNum, totalChecks, configDir),
			zap.String("config_dir", configDir))
	}
	checkNum++

	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking environment... ok (%s/%s)", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))

	observability.CLILogger.Info("")
	if allChecks {
		observability.CLILogger.Info(fmt.Sprintf("All checks passed. Your %s installation is healthy.", bannerName))
	} else {
		observability.CLILogger.Warn("Some checks failed. Review the output above for details.")
	}
	observability.CLILogger.Info("")
	observability.CLILogger.Info("=== End Diagnostics ===")

	if !allChecks {
		return exitError(1, "doctor checks failed", fmt.Errorf("one or more checks did not pass"))
	}
	return nil
}

// checkUpstreamReachable issues a lightweight GET against the first page
// of the upstream endpoint, the same probe doctor uses before a crawl.
func checkUpstreamReachable(ctx context.Context, baseURL string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?page[number]=0&page[size]=1", nil)
	if err != nil {
		return false, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500, nil
}

// formatDuration formats a duration as hours and minutes ("1h 5m", "5m"),
// or "expired" for a negative duration.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
