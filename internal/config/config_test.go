package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "small", cfg.Model)
	require.Equal(t, "es", cfg.Language)
	require.True(t, cfg.AutoDownload)
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: medium
language: auto
auto_download: false
ffmpeg_dirs:
  - /opt/ffmpeg/bin
timeout: 15m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "medium", cfg.Model)
	require.Equal(t, "auto", cfg.Language)
	require.False(t, cfg.AutoDownload)
	require.True(t, cfg.SilenceGate)
	require.Equal(t, []string{"/opt/ffmpeg/bin"}, cfg.FFmpegDirs)
	require.Equal(t, DefaultSilenceThresholdDBFS, cfg.SilenceThresholdDBFS)

	timeout, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, timeout)
}

func TestLoadRejectsUnknownModel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("model: gigantic\n"), 0o644))

	cfg, err := Load(path)
	require.ErrorContains(t, err, "gigantic")
	require.Equal(t, Default(), cfg)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated\n"), 0o644))

	_, err := Load(path)
	require.ErrorContains(t, err, "failed to parse")
}

func TestTimeoutDuration(t *testing.T) {
	t.Parallel()

	d, err := Config{}.TimeoutDuration()
	require.NoError(t, err)
	require.Zero(t, d)

	_, err = Config{Timeout: "soon"}.TimeoutDuration()
	require.Error(t, err)

	_, err = Config{Timeout: "-1m"}.TimeoutDuration()
	require.Error(t, err)
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	want := Default()
	want.Model = "tiny"
	want.FFmpegDirs = []string{"/srv/ffmpeg"}

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, "", expandPath(""))
	require.Equal(t, "/abs", expandPath("/abs"))
	require.Equal(t, home, expandPath("~"))
	require.Equal(t, filepath.Join(home, "models"), expandPath("~/models"))
	require.Equal(t, "~user", expandPath("~user"))
}
