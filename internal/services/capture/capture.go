package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/killallgit/stream-recorder/internal/models"
	"github.com/killallgit/stream-recorder/pkg/download"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultInterval is the pause between two fetch cycles
const DefaultInterval = time.Second

// Fetcher performs one blocking fetch of url into dst. It must return
// promptly once ctx is cancelled and report the bytes it managed to write.
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) (*download.Result, error)
}

// Capturer records a live stream into numbered fragment files
type Capturer struct {
	fetcher  Fetcher
	interval time.Duration
	logger   logrus.FieldLogger
}

// NewCapturer creates a capturer that pauses interval between fetches
func NewCapturer(fetcher Fetcher, interval time.Duration, logger logrus.FieldLogger) *Capturer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Capturer{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

// Capture runs a capture session against sourceURL for exactly duration,
// then stops it and returns the fragments it produced in sequence order.
func (c *Capturer) Capture(ctx context.Context, sourceURL, workDir string, duration time.Duration) (*Result, error) {
	session, err := c.Start(ctx, sourceURL, workDir)
	if err != nil {
		return nil, err
	}

	if session.Wait(duration) {
		// Only a cancelled parent context ends the loop early.
		c.logger.WithField("dir", workDir).Warn("Capture loop ended before the deadline")
	}
	session.Stop()

	result := session.Result()
	if err := ctx.Err(); err != nil {
		return &result, fmt.Errorf("capture interrupted: %w", err)
	}
	return &result, nil
}

// Start creates workDir and launches the capture loop in its own goroutine.
// workDir must be new or empty: fragments of an earlier run would be
// stitched into this one.
func (c *Capturer) Start(ctx context.Context, sourceURL, workDir string) (*Session, error) {
	if err := prepareDir(workDir); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCaptureStart, "cannot start capture").
			WithDetail("dir", workDir)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		sourceURL: sourceURL,
		dir:       workDir,
		cancel:    cancel,
		done:      make(chan struct{}),
		logger:    c.logger.WithField("dir", workDir),
	}

	go s.run(loopCtx, c.fetcher, c.interval)

	return s, nil
}

func prepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create fragment directory: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read fragment directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("fragment directory %s is not empty", dir)
	}
	return nil
}

// Session is one running capture loop. The loop only ends when its context
// is cancelled, by Stop or by the parent context.
type Session struct {
	sourceURL string
	dir       string
	cancel    context.CancelFunc
	done      chan struct{}
	logger    logrus.FieldLogger

	mu        sync.Mutex
	fragments []models.Fragment
	cycles    int
	failures  int
}

// Done is closed once the loop has stopped writing
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the loop ends on its own or timeout elapses. It reports
// whether the loop ended on its own.
func (s *Session) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

// Stop cancels the loop, including any fetch in flight, and waits for it to
// exit. It is safe to call more than once.
func (s *Session) Stop() {
	s.cancel()
	<-s.done
}

// Result returns what the loop produced. It blocks until the loop has
// stopped, so the fragment list can no longer change.
func (s *Session) Result() Result {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	fragments := make([]models.Fragment, len(s.fragments))
	copy(fragments, s.fragments)
	return Result{
		Dir:       s.dir,
		Fragments: fragments,
		Cycles:    s.cycles,
		Failures:  s.failures,
	}
}

func (s *Session) run(ctx context.Context, fetcher Fetcher, interval time.Duration) {
	defer close(s.done)

	s.logger.Info("Capture loop started")
	defer s.logger.Info("Capture loop stopped")

	// A source that is down for the whole run would otherwise log one
	// warning per cycle.
	warn := rate.Sometimes{First: 3, Interval: 30 * time.Second}

	for seq := 0; ; seq++ {
		path := filepath.Join(s.dir, models.FragmentName(seq))
		res, err := fetcher.Fetch(ctx, s.sourceURL, path)
		s.record(seq, path, res, err)

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			warn.Do(func() {
				s.logger.WithField("sequence", seq).WithError(err).Warn("Fetch failed, continuing")
			})
		}

		if !sleep(ctx, interval) {
			return
		}
	}
}

// record keeps any bytes a fetch wrote, whether or not it failed; the last
// fetch of every run is cut off by cancellation and holds real audio.
func (s *Session) record(seq int, path string, res *download.Result, err error) {
	var written int64
	if res != nil {
		written = res.Written
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles++
	if err != nil && !isCancellation(err) {
		s.failures++
	}

	if written == 0 {
		_ = os.Remove(path)
		return
	}

	s.fragments = append(s.fragments, models.Fragment{
		Sequence: seq,
		Path:     path,
		Size:     written,
	})
	s.logger.WithFields(logrus.Fields{
		"sequence": seq,
		"bytes":    written,
	}).Debug("Fragment captured")
}

func isCancellation(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
