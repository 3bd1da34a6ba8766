package capture

import (
	"github.com/killallgit/stream-recorder/internal/models"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/samber/lo"
)

// Result is the fragment list handed back once a capture session has stopped
type Result struct {
	Dir       string
	Fragments []models.Fragment
	Cycles    int
	Failures  int
}

// Paths returns fragment paths in sequence order
func (r Result) Paths() []string {
	return lo.Map(r.Fragments, func(f models.Fragment, _ int) string {
		return f.Path
	})
}

// Bytes is the total size of all fragments
func (r Result) Bytes() int64 {
	return lo.SumBy(r.Fragments, func(f models.Fragment) int64 {
		return f.Size
	})
}

// Empty reports whether the session produced no data at all
func (r Result) Empty() bool {
	return len(r.Fragments) == 0
}

// EmptyCaptureError describes an empty capture, or returns nil. It is not
// fatal: the run still stitches and uploads a zero-byte episode.
func (r Result) EmptyCaptureError() error {
	if !r.Empty() {
		return nil
	}
	return apperrors.New(apperrors.ErrCodeEmptyCapture, "capture produced no fragments").
		WithDetail("cycles", r.Cycles).
		WithDetail("failures", r.Failures)
}
