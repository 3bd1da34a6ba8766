package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// DownloadOptions configures the download behavior
type DownloadOptions struct {
	MaxSize     int64         // Maximum bytes written per fetch (0 = no limit)
	DialTimeout time.Duration // Time allowed to get response headers (0 = no limit)
	UserAgent   string        // User agent string
}

// DefaultOptions returns default download options. There is no overall
// timeout: a live stream never ends, so callers bound a fetch with ctx.
func DefaultOptions() DownloadOptions {
	return DownloadOptions{
		DialTimeout: 30 * time.Second,
		UserAgent:   "StreamRecorder/1.0",
	}
}

// Result describes one completed or interrupted fetch
type Result struct {
	FilePath    string // Path the body was written to
	ContentType string // Content-Type from response
	Written     int64  // Bytes written to FilePath
}

// Downloader streams a URL into a local file
type Downloader struct {
	client  *http.Client
	options DownloadOptions
	logger  logrus.FieldLogger
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options DownloadOptions, logger logrus.FieldLogger) *Downloader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          10,
				IdleConnTimeout:       30 * time.Second,
				DisableCompression:    true, // Don't compress audio
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: options.DialTimeout,
			},
		},
		options: options,
		logger:  logger,
	}
}

// Fetch issues one GET against url and copies the body into dst until the
// body ends, an error occurs, or ctx is cancelled. The file is created even
// when the request fails so the caller can decide what to keep; Result.Written
// reports how many bytes made it to disk in every case.
func (d *Downloader) Fetch(ctx context.Context, url, dst string) (*Result, error) {
	file, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	result := &Result{FilePath: dst}
	fetchErr := d.fetchInto(ctx, url, file, result)

	if err := file.Close(); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("failed to close %s: %w", dst, err)
	}

	d.logger.WithFields(logrus.Fields{
		"path":  dst,
		"bytes": result.Written,
	}).Debug("Fetch finished")

	return result, fetchErr
}

func (d *Downloader) fetchInto(ctx context.Context, url string, dst io.Writer, result *Result) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	result.ContentType = resp.Header.Get("Content-Type")

	var reader io.Reader = resp.Body
	if d.options.MaxSize > 0 {
		reader = io.LimitReader(reader, d.options.MaxSize)
	}

	written, err := io.Copy(dst, reader)
	result.Written = written
	if err != nil {
		return fmt.Errorf("failed to copy stream: %w", err)
	}
	return nil
}
