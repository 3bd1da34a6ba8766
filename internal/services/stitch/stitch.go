package stitch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Stitcher concatenates fragment files byte for byte into one episode file
type Stitcher struct {
	removeFragments bool
	logger          logrus.FieldLogger
}

// Option configures a Stitcher
type Option func(*Stitcher)

// WithRemoveFragments deletes each fragment once the output is complete
func WithRemoveFragments(remove bool) Option {
	return func(s *Stitcher) {
		s.removeFragments = remove
	}
}

// NewStitcher creates a stitcher
func NewStitcher(logger logrus.FieldLogger, opts ...Option) *Stitcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Stitcher{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stitch writes the fragments, in the order given, to outputPath and returns
// the number of bytes written. outputPath must not exist. Any read or write
// failure aborts the whole stitch and removes the partial output; zero
// fragments produce a zero-byte file.
func (s *Stitcher) Stitch(fragments []string, outputPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeStitch, "failed to create output directory")
	}

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeStitch, "failed to create output file").
			WithDetail("path", outputPath)
	}

	total, err := appendAll(out, fragments)
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(outputPath) // Clean up partial output
		return 0, apperrors.Wrap(err, apperrors.ErrCodeStitch, "failed to stitch fragments").
			WithDetail("path", outputPath)
	}

	s.logger.WithFields(logrus.Fields{
		"path":      outputPath,
		"fragments": len(fragments),
		"bytes":     total,
	}).Info("Stitched episode")

	if s.removeFragments {
		s.cleanup(fragments)
	}
	return total, nil
}

func appendAll(out io.Writer, fragments []string) (int64, error) {
	var total int64
	for _, path := range fragments {
		n, err := appendFile(out, path)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func appendFile(out io.Writer, path string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open fragment: %w", err)
	}
	defer in.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, fmt.Errorf("failed to copy fragment %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

func (s *Stitcher) cleanup(fragments []string) {
	for _, path := range fragments {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", path).Warn("Failed to remove fragment")
		}
	}
}
