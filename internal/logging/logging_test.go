package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	logger, closer, err := Setup(Config{File: path, Quiet: true})
	require.NoError(t, err)

	logger.WithField("volume", "vol-0123456789abcdef0").Info("created snapshot")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"created snapshot"`)
	assert.Contains(t, string(data), `"volume":"vol-0123456789abcdef0"`)
}

func TestSetupAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o640))

	logger, closer, err := Setup(Config{File: path, Quiet: true})
	require.NoError(t, err)
	logger.Info("second run")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "previous run")
	assert.Contains(t, string(data), `"message":"second run"`)
}

func TestSetupUnwritableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "run.log")

	_, _, err := Setup(Config{File: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestSetupWithoutSinks(t *testing.T) {
	logger, closer, err := Setup(Config{Quiet: true})
	require.NoError(t, err)

	logger.Error("dropped")
	require.NoError(t, closer.Close())
}
