package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/killallgit/stream-recorder/internal/database"
	"github.com/killallgit/stream-recorder/internal/services/runs"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent recording runs",
	Long: `List recording runs from the run ledger, newest first.

Example:
  recorder history
  recorder history --series "Morning Show" --limit 5`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("series", "", "only show runs of this series")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	series, _ := cmd.Flags().GetString("series")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return apperrors.ValidationError("limit", "must be > 0")
	}

	db, err := database.Open(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return apperrors.DatabaseError("open", err)
	}
	defer db.Close()

	list, err := runs.NewService(runs.NewRepository(db.DB)).List(cmd.Context(), runs.Filter{
		SeriesName: series,
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	now := time.Now()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Series", "File", "Status", "Stage", "Fragments", "Bytes", "Deleted", "Started", "Duration", "Error"})
	for _, run := range list {
		t.AppendRow(table.Row{
			run.RunID,
			run.SeriesName,
			run.FileName,
			run.Status,
			run.Stage,
			run.Fragments,
			run.Bytes,
			run.Deleted,
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration(now).Round(time.Second),
			run.ErrorCode,
		})
	}
	t.Render()
	return nil
}
