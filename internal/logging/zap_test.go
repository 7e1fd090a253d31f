package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "transcriptor.log")
	logger, err := New(Options{File: path})
	require.NoError(t, err)

	logger.Info("job finished")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "job finished")
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	t.Parallel()

	logger, err := New(Options{Verbose: true, JSON: true, File: filepath.Join(t.TempDir(), "debug.log")})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(-1))

	quiet, err := New(Options{File: filepath.Join(t.TempDir(), "info.log")})
	require.NoError(t, err)
	require.False(t, quiet.Core().Enabled(-1))
}
