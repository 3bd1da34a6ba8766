package cmd

import (
	"fmt"
	"time"

	"github.com/killallgit/stream-recorder/internal/database"
	"github.com/killallgit/stream-recorder/internal/services/retention"
	"github.com/killallgit/stream-recorder/internal/services/runs"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/retry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var pruneBindings = map[string]string{
	"series.retention_count": "keep",
	"storage.container":      "container",
}

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy without recording",
	Long: `Delete the oldest episodes of the configured container until only the
retention count remains. With --history-age, finished runs older than the
given age are also removed from the run ledger.

Example:
  recorder prune --keep 5
  recorder prune --history-age 720h`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().Int("keep", 0, "number of episodes to keep (overrides config)")
	pruneCmd.Flags().String("container", "", "object store container (overrides config)")
	pruneCmd.Flags().Duration("history-age", 0, "also delete finished ledger rows older than this age")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, pruneBindings)
	if err != nil {
		return err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	if cfg.Series.RetentionCount < 0 {
		return apperrors.ConfigError("series.retention_count", fmt.Sprintf("must be >= 0, got %d", cfg.Series.RetentionCount))
	}

	logger := logrus.StandardLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	executor, err := retry.NewExecutor(cfg.Retry, retry.WithLogger(logger))
	if err != nil {
		return apperrors.ConfigError("retry", err.Error())
	}

	deleted, err := retention.NewEnforcer(store, executor, logger).Enforce(ctx, cfg.Storage.Container, cfg.Series.RetentionCount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Deleted %d episode(s) from %s\n", len(deleted), cfg.Storage.Container)
	for _, key := range deleted {
		fmt.Fprintf(out, "  %s\n", key)
	}

	historyAge, _ := cmd.Flags().GetDuration("history-age")
	if historyAge <= 0 {
		return nil
	}
	return pruneHistory(cmd, cfg.Database.Path, cfg.Database.Verbose, historyAge)
}

func pruneHistory(cmd *cobra.Command, dbPath string, verbose bool, age time.Duration) error {
	db, err := database.Open(dbPath, verbose)
	if err != nil {
		return apperrors.DatabaseError("open", err)
	}
	defer db.Close()

	removed, err := runs.NewService(runs.NewRepository(db.DB)).Prune(cmd.Context(), age)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s) older than %s from history\n", removed, age)
	return nil
}
