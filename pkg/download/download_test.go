package download

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDefaultOptions(t *testing.T) {
	options := DefaultOptions()

	assert.Equal(t, int64(0), options.MaxSize)
	assert.Equal(t, 30*time.Second, options.DialTimeout)
	assert.Equal(t, "StreamRecorder/1.0", options.UserAgent)
}

func TestFetch_Success(t *testing.T) {
	audioData := strings.Repeat("audio-data", 128)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "StreamRecorder/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte(audioData))
	}))
	defer server.Close()

	dst := filepath.Join(t.TempDir(), "00000.rec")
	result, err := NewDownloader(DefaultOptions(), quietLogger()).Fetch(context.Background(), server.URL, dst)
	require.NoError(t, err)

	assert.Equal(t, "audio/mpeg", result.ContentType)
	assert.Equal(t, int64(len(audioData)), result.Written)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, audioData, string(data))
}

func TestFetch_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	dst := filepath.Join(t.TempDir(), "00000.rec")
	result, err := NewDownloader(DefaultOptions(), quietLogger()).Fetch(context.Background(), server.URL, dst)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server returned status 503")
	assert.Equal(t, int64(0), result.Written)
}

func TestFetch_CancelledMidStreamKeepsBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ABCD"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	dst := filepath.Join(t.TempDir(), "00000.rec")
	start := time.Now()
	result, err := NewDownloader(DefaultOptions(), quietLogger()).Fetch(ctx, server.URL, dst)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int64(4), result.Written)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", string(data))
}

func TestFetch_MaxSizeCapsFragment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	options := DefaultOptions()
	options.MaxSize = 4

	dst := filepath.Join(t.TempDir(), "00000.rec")
	result, err := NewDownloader(options, quietLogger()).Fetch(context.Background(), server.URL, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Written)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))
}
