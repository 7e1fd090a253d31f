package transcript

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, filepath.Join("/music", "a_transcripcion.txt"), OutputPath(filepath.Join("/music", "a.mp3")))
	require.Equal(t, filepath.Join("/music", "clip.final_transcripcion.txt"), OutputPath(filepath.Join("/music", "clip.final.wav")))
	require.Equal(t, filepath.Join("/music", "noext_transcripcion.txt"), OutputPath(filepath.Join("/music", "noext")))
}

func TestSaveWritesBesideSource(t *testing.T) {
	t.Parallel()

	source := filepath.Join(t.TempDir(), "a.mp3")

	path, err := Save(source, "hola mundo")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(source), "a_transcripcion.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hola mundo", string(content))
}

func TestSaveOverwritesPreviousTranscript(t *testing.T) {
	t.Parallel()

	source := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(OutputPath(source), []byte("a much longer previous transcript"), 0o644))

	_, err := Save(source, "primera")
	require.NoError(t, err)
	path, err := Save(source, "segunda versión")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "segunda versión", string(content))
	require.True(t, utf8.Valid(content))

	entries, err := os.ReadDir(filepath.Dir(source))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestExportAddsExtension(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "exports", "notes")
	path, err := Export(dest, "日本語のテキスト")
	require.NoError(t, err)
	require.Equal(t, dest+".txt", path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "日本語のテキスト", string(content))

	_, err = Export("  ", "x")
	require.ErrorIs(t, err, ErrEmptyDestination)
}

func TestIsBlank(t *testing.T) {
	t.Parallel()

	require.True(t, IsBlank(""))
	require.True(t, IsBlank("   \n\t "))
	require.True(t, IsBlank("[BLANK_AUDIO]"))
	require.True(t, IsBlank(" [blank_audio] "))
	require.False(t, IsBlank("hola mundo"))
}
