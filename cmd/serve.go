package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api"
	"github.com/killallgit/stream-recorder/api/types"
	"github.com/killallgit/stream-recorder/internal/database"
	"github.com/killallgit/stream-recorder/internal/services/cleanup"
	"github.com/killallgit/stream-recorder/internal/services/runs"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveBindings = map[string]string{
	"server.host": "host",
	"server.port": "port",
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status API server",
	Long: `Start the read-only status API over the run ledger and the object store.

While the server runs, stale run directories are swept from the work
directory and old ledger rows are pruned periodically.

Example:
  recorder serve
  recorder serve --port 9090
  recorder serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, serveBindings)
	if err != nil {
		return err
	}
	logger := logrus.StandardLogger()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return apperrors.DatabaseError("open", err)
	}
	defer db.Close()
	ledger := runs.NewService(runs.NewRepository(db.DB))

	deps := &types.Dependencies{
		DB:    db,
		Runs:  ledger,
		Build: types.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildTime},
	}
	if err := cfg.ValidateStorage(); err != nil {
		logger.WithError(err).Warn("Object store not configured, container routes disabled")
	} else if store, err := openStore(ctx, cfg, logger); err != nil {
		logger.WithError(err).Warn("Object store unavailable, container routes disabled")
	} else {
		deps.Store = store
	}

	opts := []cleanup.Option{cleanup.WithLogger(logger)}
	if age := cfg.Database.HistoryRetention; age > 0 {
		opts = append(opts, cleanup.WithTask(func(ctx context.Context) error {
			_, err := ledger.Prune(ctx, age)
			return err
		}))
	}
	sweeper := cleanup.NewService(cfg.Capture.WorkDir, cfg.Capture.MaxWorkAge, cfg.Capture.SweepInterval, opts...)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := api.NewServer(address, cfg.Server, logger)
	server.SetDependencies(deps)
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Channel to receive server errors
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	logger.WithField("address", address).Info("Status API listening")

	// Wait for interrupt signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case runErr = <-serverErr:
		logger.WithError(runErr).Error("Server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return err
	}

	logger.Info("Server gracefully stopped")
	return runErr
}
