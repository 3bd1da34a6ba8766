package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Stream Recorder")
	assert.Contains(t, out, "Version:      v"+Version)
	assert.Contains(t, out, "OS/Arch:")

	out, err = execute(t, nil, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "v"+Version+"\n", out)
}
