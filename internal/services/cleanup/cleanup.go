package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/killallgit/stream-recorder/internal/workdir"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Task is extra maintenance run on every sweep, such as ledger pruning
type Task func(ctx context.Context) error

// Service removes run directories left behind in the work directory
type Service struct {
	layout          workdir.Layout
	maxAge          time.Duration
	cleanupInterval time.Duration
	tasks           []Task
	logger          logrus.FieldLogger
	now             func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the cleanup service
type Option func(*Service)

// WithTask adds a task that runs after each periodic sweep
func WithTask(task Task) Option {
	return func(s *Service) {
		s.tasks = append(s.tasks, task)
	}
}

// WithLogger sets the service logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new cleanup service
func NewService(workDir string, maxAge, cleanupInterval time.Duration, opts ...Option) *Service {
	s := &Service{
		layout:          workdir.Layout{Root: workDir},
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
		logger:          logrus.StandardLogger(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs an initial sweep and then sweeps every cleanup interval until
// ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.runOnce(ctx)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-ctx.Done():
				s.logger.Info("Cleanup service stopped")
				return
			}
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"interval": s.cleanupInterval,
		"max_age":  s.maxAge,
	}).Info("Cleanup service started")
}

// Stop stops the periodic sweep and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Service) runOnce(ctx context.Context) {
	if _, err := s.Sweep(); err != nil {
		s.logger.WithError(err).Error("Work directory sweep failed")
	}
	for _, task := range s.tasks {
		if err := task(ctx); err != nil {
			s.logger.WithError(err).Warn("Cleanup task failed")
		}
	}
}

// Sweep removes run directories whose modification time is older than the
// maximum age and returns their paths. Series that are being recorded right
// now, meaning their lock is held, are skipped entirely.
func (s *Service) Sweep() ([]string, error) {
	entries, err := os.ReadDir(s.layout.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read work directory")
	}

	cutoff := s.now().Add(-s.maxAge)
	var removed []string

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		lock, err := s.layout.TryLockKey(entry.Name())
		if err != nil {
			s.logger.WithField("series", entry.Name()).Debug("Series is locked, skipping sweep")
			continue
		}

		removed = append(removed, s.sweepSeries(filepath.Join(s.layout.Root, entry.Name()), cutoff)...)

		if err := lock.Unlock(); err != nil {
			s.logger.WithError(err).WithField("series", entry.Name()).Warn("Failed to release series lock")
		}
	}

	if len(removed) > 0 {
		s.logger.WithField("count", len(removed)).Info("Removed stale run directories")
	}
	return removed, nil
}

func (s *Service) sweepSeries(dir string, cutoff time.Time) []string {
	runs, err := os.ReadDir(dir)
	if err != nil {
		s.logger.WithError(err).WithField("dir", dir).Warn("Failed to read series directory")
		return nil
	}

	var removed []string
	for _, run := range runs {
		info, err := run.Info()
		if err != nil || !run.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, run.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.WithError(err).WithField("dir", path).Warn("Failed to remove run directory")
			continue
		}
		s.logger.WithField("dir", path).Debug("Removed stale run directory")
		removed = append(removed, path)
	}
	return removed
}

// RemoveRun deletes one run directory, ignoring a missing one
func RemoveRun(layout workdir.Layout, series, runID string) error {
	if runID == "" {
		return nil
	}
	if err := os.RemoveAll(layout.RunDir(series, runID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
