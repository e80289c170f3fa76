// Package cmd implements the gonimbus-ratings command tree: crawl, rate,
// evaluate, leaderboard, graph, serve, doctor, and jobs.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/3leaps/floratings/internal/observability"
)

// AppIdentity describes the running binary, set once at startup by main().
type AppIdentity struct {
	BinaryName string
}

var (
	appIdentity *AppIdentity

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

var (
	cfgFile      string
	debugEnabled bool
	envName      string
)

var rootCmd = &cobra.Command{
	Use:   "gonimbus-ratings",
	Short: "Crawl wrestling match history and maintain Glicko-2 ratings",
	Long: `gonimbus-ratings crawls a wrestler's opponent graph, ingests match
history into a local store, and replays a Glicko-2 rating engine over it to
produce per-weight-class rankings, an evaluation report, and a leaderboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		observability.InitCLILogger(envName, debugEnabled)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugEnabled, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "production", "Runtime environment (production|test|development)")

	rootCmd.Version = versionInfo.Version
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		_ = viper.ReadInConfig()
	}
}

// setDefaults seeds the global viper instance used by simple flag-style
// lookups in the command tree (internal/config.Load owns the fuller,
// structured config used by the doctor command).
func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.profile", "structured")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("health.enabled", true)

	viper.SetDefault("workers", 4)

	viper.SetDefault("debug.enabled", false)
	viper.SetDefault("debug.pprof_enabled", false)
}

// SetVersionInfo records build metadata shown by --version and reported by
// serve's health endpoints. Called once from main().
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = version
}

// SetAppIdentity records the binary name shown by the doctor banner.
func SetAppIdentity(binaryName string) {
	appIdentity = &AppIdentity{BinaryName: binaryName}
}

// GetAppIdentity returns the current app identity, or nil if SetAppIdentity
// has not been called yet.
func GetAppIdentity() *AppIdentity {
	return appIdentity
}

// Execute runs the root command, exiting the process with a non-zero
// status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError wraps err with a human-readable message; the caller's RunE
// return value is what ultimately surfaces the error's message before
// cobra exits non-zero. The numeric code is informational (appended to the
// error message), since the CLI's actual exit status is governed by cobra's
// own error path.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}
