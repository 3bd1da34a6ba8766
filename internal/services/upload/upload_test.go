package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/killallgit/stream-recorder/internal/storage"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/retry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newExecutor(t *testing.T, retries int) *retry.Executor {
	t.Helper()
	exec, err := retry.NewExecutor(
		retry.Policy{MaxRetries: retries, InitialDelay: time.Millisecond},
		retry.WithSleep(func(time.Duration) {}),
		retry.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	return exec
}

// flakyStore fails the first n Puts after consuming part of the body
type flakyStore struct {
	storage.ObjectStore
	failures int
	puts     int
}

func (s *flakyStore) Put(ctx context.Context, container, key string, data io.Reader) error {
	s.puts++
	if s.puts <= s.failures {
		_, _ = io.CopyN(io.Discard, data, 2)
		return errors.New("503 server busy")
	}
	return s.ObjectStore.Put(ctx, container, key, data)
}

func writeEpisode(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.mp3")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readObject(t *testing.T, store storage.ObjectStore, container, key string) string {
	t.Helper()
	rc, err := store.Open(context.Background(), container, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestUpload(t *testing.T) {
	store, err := storage.NewFilesystemStore(afero.NewMemMapFs(), "/acct")
	require.NoError(t, err)
	path := writeEpisode(t, "ABCD")

	u := NewUploader(store, newExecutor(t, 3), quietLogger())
	require.NoError(t, u.Upload(context.Background(), path, "morning", "ep.mp3"))
	assert.Equal(t, "ABCD", readObject(t, store, "morning", "ep.mp3"))
}

func TestUpload_RetriesWithFullFile(t *testing.T) {
	base, err := storage.NewFilesystemStore(afero.NewMemMapFs(), "/acct")
	require.NoError(t, err)
	store := &flakyStore{ObjectStore: base, failures: 2}

	u := NewUploader(store, newExecutor(t, 3), quietLogger())
	require.NoError(t, u.Upload(context.Background(), writeEpisode(t, "ABCDEF"), "morning", "ep.mp3"))

	assert.Equal(t, 3, store.puts)
	assert.Equal(t, "ABCDEF", readObject(t, base, "morning", "ep.mp3"))
}

func TestUpload_ExhaustedRetries(t *testing.T) {
	base, err := storage.NewFilesystemStore(afero.NewMemMapFs(), "/acct")
	require.NoError(t, err)
	store := &flakyStore{ObjectStore: base, failures: 10}

	u := NewUploader(store, newExecutor(t, 2), quietLogger())
	err = u.Upload(context.Background(), writeEpisode(t, "ABCD"), "morning", "ep.mp3")
	require.Error(t, err)

	assert.Equal(t, 3, store.puts)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpload))
	assert.Contains(t, err.Error(), "503 server busy")
}

func TestUpload_MissingFile(t *testing.T) {
	store, err := storage.NewFilesystemStore(afero.NewMemMapFs(), "/acct")
	require.NoError(t, err)

	u := NewUploader(store, newExecutor(t, 1), quietLogger())
	err = u.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), "morning", "ep.mp3")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpload))
}
