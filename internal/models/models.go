package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/killallgit/stream-recorder/pkg/naming"
	"github.com/samber/mo"
)

// FragmentExt is the extension of raw capture fragments
const FragmentExt = ".rec"

// Series is the logical show identity for one run. It is built once from the
// invocation parameters and only its Episode reference changes afterwards.
type Series struct {
	Name           string
	SourceURL      string
	RetentionCount int
	Episode        *Episode
}

// NewSeries validates and builds a Series
func NewSeries(name, sourceURL string, retentionCount int) (*Series, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("series name is required")
	}
	if strings.TrimSpace(sourceURL) == "" {
		return nil, errors.New("series source URL is required")
	}
	if retentionCount < 0 {
		return nil, fmt.Errorf("retention count must be >= 0, got %d", retentionCount)
	}
	return &Series{
		Name:           name,
		SourceURL:      sourceURL,
		RetentionCount: retentionCount,
	}, nil
}

// Episode is one capture instance. FileName is fixed at construction; FilePath
// is only known once the stitched file exists.
type Episode struct {
	Title     string
	MediaType string
	FileName  string
	FilePath  mo.Option[string]
	Runtime   int // seconds
	StartedAt time.Time
}

// NewEpisode builds an Episode whose file name derives from title, media type
// and startedAt truncated to the second. Episodes with the same title created
// in the same second share a file name.
func NewEpisode(title, mediaType string, runtimeSeconds int, startedAt time.Time) (*Episode, error) {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return nil, errors.New("media type is required")
	}
	if runtimeSeconds <= 0 {
		return nil, fmt.Errorf("runtime must be > 0 seconds, got %d", runtimeSeconds)
	}

	startedAt = startedAt.Truncate(time.Second)
	return &Episode{
		Title:     title,
		MediaType: mediaType,
		FileName:  naming.EpisodeFileName(title, mediaType, startedAt),
		FilePath:  mo.None[string](),
		Runtime:   runtimeSeconds,
		StartedAt: startedAt,
	}, nil
}

// RuntimeDuration returns the target capture length
func (e *Episode) RuntimeDuration() time.Duration {
	return time.Duration(e.Runtime) * time.Second
}

// SetFilePath records where the stitched file was written
func (e *Episode) SetFilePath(path string) {
	e.FilePath = mo.Some(path)
}

// Fragment is one sequentially numbered chunk written by the capture loop
type Fragment struct {
	Sequence int
	Path     string
	Size     int64
}

// FragmentName returns the zero-padded file name for a sequence number
func FragmentName(sequence int) string {
	return fmt.Sprintf("%05d%s", sequence, FragmentExt)
}
