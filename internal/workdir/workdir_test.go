package workdir

import (
	"path/filepath"
	"testing"

	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Paths(t *testing.T) {
	l := Layout{Root: "/work"}

	assert.Equal(t, filepath.Join("/work", "morning_show"), l.SeriesDir("Morning Show"))
	assert.Equal(t, filepath.Join("/work", "morning_show", "run-1"), l.RunDir("Morning Show", "run-1"))
	assert.Equal(t, filepath.Join("/work", "morning_show", "run-1", "fragments"), l.FragmentsDir("Morning Show", "run-1"))
	assert.Equal(t, filepath.Join("/work", "morning_show", "run-1", "ep.mp3"), l.EpisodePath("Morning Show", "run-1", "ep.mp3"))
	assert.Equal(t, filepath.Join("/work", "morning_show.lock"), l.LockPath("Morning Show"))
}

func TestTryLock_SecondHolderIsRejected(t *testing.T) {
	l := Layout{Root: filepath.Join(t.TempDir(), "work")}

	first, err := l.TryLock("Morning Show")
	require.NoError(t, err)
	assert.FileExists(t, first.Path())

	_, err = l.TryLock("Morning Show")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeRunLocked))
	assert.Equal(t, apperrors.ClassFatalSetup, apperrors.Classify(err))

	other, err := l.TryLock("Evening Show")
	require.NoError(t, err)
	require.NoError(t, other.Unlock())

	require.NoError(t, first.Unlock())
	again, err := l.TryLock("Morning Show")
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
