// Command gonimbus-ratings crawls wrestling match history and maintains
// Glicko-2 ratings over it.
package main

import (
	"context"

	"github.com/3leaps/floratings/internal/cmd"
	"github.com/3leaps/floratings/internal/config"
	"github.com/3leaps/floratings/internal/observability"
)

// version, commit, and date are overridden at build time via
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetAppIdentity("gonimbus-ratings")
	cmd.SetVersionInfo(version, commit, date)

	if _, err := config.Load(context.Background()); err != nil {
		observability.InitCLILogger("production", false)
		observability.CLILogger.Sugar().Fatalf("failed to load configuration: %v", err)
	}

	cmd.Execute()
}
