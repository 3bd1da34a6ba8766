package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/killallgit/stream-recorder/internal/database"
	"github.com/killallgit/stream-recorder/internal/models"
	"github.com/killallgit/stream-recorder/internal/pipeline"
	"github.com/killallgit/stream-recorder/internal/services/capture"
	"github.com/killallgit/stream-recorder/internal/services/cleanup"
	"github.com/killallgit/stream-recorder/internal/services/notify"
	"github.com/killallgit/stream-recorder/internal/services/retention"
	"github.com/killallgit/stream-recorder/internal/services/runs"
	"github.com/killallgit/stream-recorder/internal/services/stitch"
	"github.com/killallgit/stream-recorder/internal/services/upload"
	"github.com/killallgit/stream-recorder/internal/storage"
	"github.com/killallgit/stream-recorder/pkg/config"
	"github.com/killallgit/stream-recorder/pkg/download"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/retry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var recordBindings = map[string]string{
	"series.name":            "series",
	"series.title":           "title",
	"series.source_url":      "source",
	"series.runtime":         "runtime",
	"series.media_type":      "media-type",
	"series.retention_count": "keep",
	"storage.container":      "container",
	"webhook.url":            "webhook",
}

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one episode of a live stream",
	Long: `Capture the configured stream for the series runtime, stitch the
fragments into one episode, upload it, notify the webhook and apply the
retention policy to the container.

Any fatal error stops the run and exits with status 1.

Example:
  recorder record --series "Morning Show" --source https://radio.example.com/live.mp3 --runtime 3600
  recorder record --config ./config/morning.yaml --no-start-notify`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().String("series", "", "series name (overrides config)")
	recordCmd.Flags().String("title", "", "episode title (defaults to the series name)")
	recordCmd.Flags().String("source", "", "stream URL to capture")
	recordCmd.Flags().Int("runtime", 0, "capture length in seconds")
	recordCmd.Flags().String("media-type", "", "episode file extension, e.g. mp3")
	recordCmd.Flags().Int("keep", 0, "number of episodes to keep in the container")
	recordCmd.Flags().String("container", "", "object store container")
	recordCmd.Flags().String("webhook", "", "notification webhook URL")
	recordCmd.Flags().Bool("no-start-notify", false, "send only an untagged finish notification")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, recordBindings)
	if err != nil {
		return err
	}
	if noStart, _ := cmd.Flags().GetBool("no-start-notify"); noStart {
		cfg.Webhook.NotifyStart = false
	}
	if err := cfg.ValidateRecording(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := recordEpisode(ctx, cfg, logrus.StandardLogger())
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

// recordEpisode wires the pipeline from cfg and runs it once
func recordEpisode(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*pipeline.Report, error) {
	sweeper := cleanup.NewService(cfg.Capture.WorkDir, cfg.Capture.MaxWorkAge, cfg.Capture.SweepInterval, cleanup.WithLogger(logger))
	if _, err := sweeper.Sweep(); err != nil {
		logger.WithError(err).Warn("Work directory sweep failed")
	}

	var ledger runs.Service
	db, err := database.Open(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		logger.WithError(err).Warn("Run ledger unavailable, recording without history")
	} else {
		defer db.Close()
		ledger = runs.NewService(runs.NewRepository(db.DB))
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	executor, err := retry.NewExecutor(cfg.Retry, retry.WithLogger(logger))
	if err != nil {
		return nil, apperrors.ConfigError("retry", err.Error())
	}

	series, err := models.NewSeries(cfg.Series.Name, cfg.Series.SourceURL, cfg.Series.RetentionCount)
	if err != nil {
		return nil, apperrors.ValidationError("series", err.Error())
	}
	series.Episode, err = models.NewEpisode(cfg.Series.Title, cfg.Series.MediaType, cfg.Series.Runtime, time.Now())
	if err != nil {
		return nil, apperrors.ValidationError("episode", err.Error())
	}

	dlOpts := download.DefaultOptions()
	if cfg.Capture.UserAgent != "" {
		dlOpts.UserAgent = cfg.Capture.UserAgent
	}
	dlOpts.MaxSize = cfg.Capture.MaxFragmentBytes

	orchestrator := pipeline.New(pipeline.Dependencies{
		Capturer: capture.NewCapturer(download.NewDownloader(dlOpts, logger), cfg.Capture.Interval, logger),
		Stitcher: stitch.NewStitcher(logger, stitch.WithRemoveFragments(!cfg.Capture.KeepFragments)),
		Uploader: upload.NewUploader(store, executor, logger),
		Notifier: notify.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Timeout, executor, logger),
		Enforcer: retention.NewEnforcer(store, executor, logger),
		Ledger:   ledger,
	}, pipeline.Options{
		Container:     cfg.Storage.Container,
		WorkDir:       cfg.Capture.WorkDir,
		NotifyStart:   cfg.Webhook.NotifyStart,
		KeepFragments: cfg.Capture.KeepFragments,
	}, logger)

	return orchestrator.Run(ctx, series)
}

func openStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*storage.FilesystemStore, error) {
	strategy, err := storage.StrategyFromConfig(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, afero.NewOsFs(), cfg.Storage, strategy, logger)
}

func printReport(out io.Writer, report *pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Run", report.RunID},
		{"Stage", report.Stage},
		{"File", report.FileName},
		{"Fragments", report.Fragments},
		{"Bytes", report.Bytes},
		{"Empty capture", report.EmptyCapture},
		{"Deleted", fmt.Sprintf("%d %v", len(report.Deleted), report.Deleted)},
	})
	t.Render()
}
