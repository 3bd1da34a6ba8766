// Package workdir owns the on-disk layout of recording runs and the
// per-series lock that keeps two runs out of the same directory.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/naming"
)

const (
	lockExt      = ".lock"
	fragmentsDir = "fragments"
)

// Layout resolves paths under the configured work directory:
//
//	<root>/<series>.lock
//	<root>/<series>/<run-id>/fragments/00000.rec
//	<root>/<series>/<run-id>/<episode file>
type Layout struct {
	Root string
}

// SeriesKey is the file-system safe form of a series name
func SeriesKey(series string) string {
	return naming.SafeName(series)
}

// SeriesDir holds every run directory of a series
func (l Layout) SeriesDir(series string) string {
	return filepath.Join(l.Root, SeriesKey(series))
}

// RunDir is the directory owned by a single run
func (l Layout) RunDir(series, runID string) string {
	return filepath.Join(l.SeriesDir(series), runID)
}

// FragmentsDir is where the capture loop writes fragments
func (l Layout) FragmentsDir(series, runID string) string {
	return filepath.Join(l.RunDir(series, runID), fragmentsDir)
}

// EpisodePath is where the stitched episode is written
func (l Layout) EpisodePath(series, runID, fileName string) string {
	return filepath.Join(l.RunDir(series, runID), fileName)
}

// LockPath is the lock file guarding a series
func (l Layout) LockPath(series string) string {
	return l.lockPathForKey(SeriesKey(series))
}

func (l Layout) lockPathForKey(key string) string {
	return filepath.Join(l.Root, key+lockExt)
}

// Lock is a held per-series lock
type Lock struct {
	fl *flock.Flock
}

// TryLock takes the series lock without blocking. A lock held by another
// process is reported as RUN_LOCKED.
func (l Layout) TryLock(series string) (*Lock, error) {
	return l.TryLockKey(SeriesKey(series))
}

// TryLockKey is TryLock for a series key that is already normalized, such as
// a directory name found under Root.
func (l Layout) TryLockKey(key string) (*Lock, error) {
	if err := os.MkdirAll(l.Root, 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCaptureStart, "failed to create work directory").
			WithDetail("dir", l.Root)
	}

	fl := flock.New(l.lockPathForKey(key))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRunLocked, "failed to take series lock").
			WithDetail("series", key)
	}
	if !locked {
		return nil, apperrors.New(apperrors.ErrCodeRunLocked, fmt.Sprintf("series %q is already being recorded", key)).
			WithDetail("series", key)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path
func (k *Lock) Path() string {
	return k.fl.Path()
}

// Unlock releases the lock. The lock file itself is left in place.
func (k *Lock) Unlock() error {
	return k.fl.Unlock()
}
