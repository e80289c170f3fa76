package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/floratings/internal/observability"
	"github.com/3leaps/floratings/internal/server"
	"github.com/3leaps/floratings/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rating/leaderboard/graph artifacts over HTTP",
	Long: `Serve the JSON artifacts written by rate, evaluate, leaderboard, and
graph as static files, alongside /health and /version endpoints.

Example:
  gonimbus-ratings serve --output-dir build --port 8080`,
	RunE: runServe,
}

var (
	serveHost            string
	servePort            int
	serveOutputDir       string
	serveShutdownTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to bind")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to bind")
	serveCmd.Flags().StringVar(&serveOutputDir, "output-dir", "build", "Directory of generated artifacts to serve")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	identity := GetAppIdentity()
	version := versionInfo.Version
	if version == "" {
		version = "dev"
	}
	handlers.InitHealthManager(version)

	srv := server.NewWithOutputDir(serveHost, servePort, serveOutputDir)

	httpServer := &http.Server{
		Addr:    srv.Addr(),
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		binaryName := "gonimbus-ratings"
		if identity != nil && identity.BinaryName != "" {
			binaryName = identity.BinaryName
		}
		observability.CLILogger.Info(fmt.Sprintf("%s serving", binaryName),
			zap.String("addr", httpServer.Addr),
			zap.String("output_dir", serveOutputDir))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		observability.CLILogger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(1, "Graceful shutdown failed", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return exitError(1, "Server failed", err)
		}
		return nil
	}
}
