package cmd

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCommand_Empty(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, fmt.Sprintf("database:\n  path: %s\n", filepath.Join(dir, "recorder.db")))

	out, err := execute(t, nil, "history", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
}

func TestHistoryCommand_InvalidLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, fmt.Sprintf("database:\n  path: %s\n", filepath.Join(dir, "recorder.db")))

	_, err := execute(t, nil, "history", "--config", path, "--limit", "0")
	assert.Error(t, err)
}
