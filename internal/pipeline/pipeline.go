// Package pipeline sequences one recording run:
// NotifyStart, Capture, Stitch, Upload, NotifyFinish, Enforce.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/stream-recorder/internal/models"
	"github.com/killallgit/stream-recorder/internal/services/capture"
	"github.com/killallgit/stream-recorder/internal/services/cleanup"
	"github.com/killallgit/stream-recorder/internal/services/notify"
	"github.com/killallgit/stream-recorder/internal/services/runs"
	"github.com/killallgit/stream-recorder/internal/workdir"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Capturer records the source for a fixed duration
type Capturer interface {
	Capture(ctx context.Context, sourceURL, workDir string, duration time.Duration) (*capture.Result, error)
}

// Stitcher joins fragments into one file
type Stitcher interface {
	Stitch(fragments []string, outputPath string) (int64, error)
}

// Uploader publishes a local file to the object store
type Uploader interface {
	Upload(ctx context.Context, localPath, container, key string) error
}

// Notifier announces run progress
type Notifier interface {
	Notify(ctx context.Context, action notify.Action, event notify.Event) error
}

// Enforcer applies the retention policy to a container
type Enforcer interface {
	Enforce(ctx context.Context, container string, keep int) ([]string, error)
}

// Dependencies are the components a run is built from. Ledger is optional.
type Dependencies struct {
	Capturer Capturer
	Stitcher Stitcher
	Uploader Uploader
	Notifier Notifier
	Enforcer Enforcer
	Ledger   runs.Service
}

// Options parameterize a run
type Options struct {
	Container     string
	WorkDir       string
	NotifyStart   bool
	KeepFragments bool
}

// Report describes how far a run got
type Report struct {
	RunID        string       `json:"run_id"`
	Stage        models.Stage `json:"stage"`
	FileName     string       `json:"file_name"`
	FilePath     string       `json:"file_path,omitempty"`
	Fragments    int          `json:"fragments"`
	Bytes        int64        `json:"bytes"`
	EmptyCapture bool         `json:"empty_capture"`
	Deleted      []string     `json:"deleted"`
}

// Orchestrator runs the recording pipeline for one series at a time
type Orchestrator struct {
	deps   Dependencies
	opts   Options
	layout workdir.Layout
	logger logrus.FieldLogger
}

// New creates an orchestrator
func New(deps Dependencies, opts Options, logger logrus.FieldLogger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	// Episode paths handed to later stages are absolute
	if root, err := filepath.Abs(opts.WorkDir); err == nil {
		opts.WorkDir = root
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		layout: workdir.Layout{Root: opts.WorkDir},
		logger: logger,
	}
}

// Run records the series' episode end to end. Any fatal error stops the run
// at the failing stage: later stages, including the finish notification and
// retention, do not run. The report is returned in both cases.
func (o *Orchestrator) Run(ctx context.Context, series *models.Series) (*Report, error) {
	if series == nil || series.Episode == nil {
		return nil, apperrors.MissingFieldError("series.episode")
	}
	episode := series.Episode

	lock, err := o.layout.TryLock(series.Name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			o.logger.WithError(err).Warn("Failed to release series lock")
		}
	}()

	ledger, runID := o.startLedger(ctx, series)
	report := &Report{
		RunID:    runID,
		Stage:    models.StageNotifyStart,
		FileName: episode.FileName,
		Deleted:  []string{},
	}
	log := o.logger.WithFields(logrus.Fields{
		"series": series.Name,
		"run_id": report.RunID,
		"file":   episode.FileName,
	})
	event := notify.Event{
		Container:  o.opts.Container,
		FileName:   episode.FileName,
		SeriesName: series.Name,
	}

	fail := func(err error) (*Report, error) {
		err = apperrors.StageError(apperrors.GetCode(err), string(report.Stage), err)
		log.WithError(err).WithFields(logrus.Fields{
			"stage": report.Stage,
			"class": apperrors.Classify(err),
		}).Error("Recording run aborted")
		ledger.write(ctx, "fail", func(ctx context.Context, l runs.Service) error {
			return l.Fail(ctx, report.RunID, report.Stage, err)
		})
		return report, err
	}

	// NotifyStart
	if o.opts.NotifyStart {
		log.WithField("stage", report.Stage).Info("Sending start notification")
		if err := o.deps.Notifier.Notify(ctx, notify.ActionStart, event); err != nil {
			return fail(err)
		}
	}

	// Capture
	o.advance(ctx, ledger, report, models.StageCapture, log)
	fragmentsDir := o.layout.FragmentsDir(series.Name, report.RunID)
	result, err := o.deps.Capturer.Capture(ctx, series.SourceURL, fragmentsDir, episode.RuntimeDuration())
	if result != nil {
		report.Fragments = len(result.Fragments)
		report.Bytes = result.Bytes()
		report.EmptyCapture = result.Empty()
	}
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.Wrap(err, apperrors.ErrCodeInternal, "capture did not complete")
		}
		return fail(err)
	}
	if emptyErr := result.EmptyCaptureError(); emptyErr != nil {
		log.WithError(emptyErr).Warn("Capture produced no data, publishing an empty episode")
	}
	ledger.write(ctx, "record capture", func(ctx context.Context, l runs.Service) error {
		return l.RecordCapture(ctx, report.RunID, report.Fragments, report.Bytes, report.EmptyCapture)
	})

	// Stitch
	o.advance(ctx, ledger, report, models.StageStitch, log)
	outputPath := o.layout.EpisodePath(series.Name, report.RunID, episode.FileName)
	written, err := o.deps.Stitcher.Stitch(result.Paths(), outputPath)
	if err != nil {
		return fail(err)
	}
	if written != report.Bytes {
		return fail(apperrors.Newf(apperrors.ErrCodeStitch,
			"stitched %d bytes but fragments hold %d", written, report.Bytes))
	}
	episode.SetFilePath(outputPath)
	report.FilePath = outputPath

	// Upload
	o.advance(ctx, ledger, report, models.StageUpload, log)
	if err := o.deps.Uploader.Upload(ctx, outputPath, o.opts.Container, episode.FileName); err != nil {
		return fail(err)
	}

	// NotifyFinish
	o.advance(ctx, ledger, report, models.StageNotifyFinish, log)
	finish := notify.ActionNone
	if o.opts.NotifyStart {
		finish = notify.ActionFinish
	}
	if err := o.deps.Notifier.Notify(ctx, finish, event); err != nil {
		return fail(err)
	}

	// Enforce
	o.advance(ctx, ledger, report, models.StageEnforce, log)
	deleted, err := o.deps.Enforcer.Enforce(ctx, o.opts.Container, series.RetentionCount)
	if err != nil {
		return fail(err)
	}
	report.Deleted = deleted

	report.Stage = models.StageDone
	ledger.write(ctx, "complete", func(ctx context.Context, l runs.Service) error {
		return l.Complete(ctx, report.RunID, len(deleted))
	})

	if !o.opts.KeepFragments {
		if err := cleanup.RemoveRun(o.layout, series.Name, report.RunID); err != nil {
			log.WithError(err).Warn("Failed to remove run directory")
		}
	}

	log.WithFields(logrus.Fields{
		"fragments": report.Fragments,
		"bytes":     report.Bytes,
		"deleted":   len(report.Deleted),
	}).Info("Recording run completed")
	return report, nil
}

func (o *Orchestrator) advance(ctx context.Context, ledger *runLedger, report *Report, stage models.Stage, log logrus.FieldLogger) {
	report.Stage = stage
	log.WithField("stage", stage).Info("Entering stage")
	ledger.write(ctx, "advance", func(ctx context.Context, l runs.Service) error {
		return l.Advance(ctx, report.RunID, stage)
	})
}

// startLedger creates the ledger row and returns its run id. Without a
// working ledger the run still gets an id of its own and skips every later
// ledger write.
func (o *Orchestrator) startLedger(ctx context.Context, series *models.Series) (*runLedger, string) {
	if o.deps.Ledger == nil {
		return &runLedger{logger: o.logger}, uuid.NewString()
	}
	run, err := o.deps.Ledger.Start(context.WithoutCancel(ctx), series.Name, o.opts.Container, series.Episode.FileName)
	if err != nil {
		o.logger.WithError(err).Warn("Run ledger unavailable, continuing without it")
		return &runLedger{logger: o.logger}, uuid.NewString()
	}
	return &runLedger{svc: o.deps.Ledger, logger: o.logger}, run.RunID
}

// runLedger applies best-effort ledger writes for one run. Failures are
// logged and never change the outcome of the run.
type runLedger struct {
	svc    runs.Service
	logger logrus.FieldLogger
}

func (r *runLedger) write(ctx context.Context, op string, fn func(context.Context, runs.Service) error) {
	if r.svc == nil {
		return
	}
	if err := fn(context.WithoutCancel(ctx), r.svc); err != nil {
		r.logger.WithError(err).WithField("op", fmt.Sprintf("ledger %s", op)).Warn("Run ledger write failed")
	}
}
