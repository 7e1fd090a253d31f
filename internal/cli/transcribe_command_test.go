package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/transcriptor/internal/clipboard"
	"github.com/fmueller/transcriptor/internal/job"
	"github.com/fmueller/transcriptor/internal/whisper"
	"github.com/stretchr/testify/require"
)

func TestTranscribeCommandPrintsAndSavesTranscript(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{text: "hola mundo"}
	app := testApp(t, engine)
	source := writeAudio(t, "a.mp3")

	out := new(bytes.Buffer)
	cmd := newTranscribeCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{source})

	require.NoError(t, cmd.Execute())
	require.Equal(t, "hola mundo\n", out.String())
	require.Equal(t, "es", engine.gotLang)

	saved, err := os.ReadFile(filepath.Join(filepath.Dir(source), "a_transcripcion.txt"))
	require.NoError(t, err)
	require.Equal(t, "hola mundo", string(saved))
}

func TestTranscribeCommandCopiesTranscript(t *testing.T) {
	t.Parallel()

	app := testApp(t, &stubEngine{text: "hola mundo"})
	var copied []string
	app.copyFn = func(_ context.Context, value string) error {
		copied = append(copied, value)
		return nil
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--copy", writeAudio(t, "clip.wav")})

	require.NoError(t, cmd.Execute())
	require.Equal(t, []string{"hola mundo"}, copied)
}

func TestTranscribeCommandSkipsCopyForBlankTranscript(t *testing.T) {
	t.Parallel()

	app := testApp(t, &stubEngine{text: whisper.BlankAudioToken})
	copyCalls := 0
	app.copyFn = func(_ context.Context, _ string) error {
		copyCalls++
		return nil
	}

	out := new(bytes.Buffer)
	cmd := newTranscribeCmd(app)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--copy", writeAudio(t, "quiet.wav")})

	require.NoError(t, cmd.Execute())
	require.Equal(t, 0, copyCalls)
	require.Equal(t, whisper.BlankAudioToken+"\n", out.String())
}

func TestTranscribeCommandCopiesBlankWhenCopyEmptyEnabled(t *testing.T) {
	t.Parallel()

	app := testApp(t, &stubEngine{text: whisper.BlankAudioToken})
	copyCalls := 0
	app.copyFn = func(_ context.Context, _ string) error {
		copyCalls++
		return nil
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--copy", "--copy-empty", writeAudio(t, "quiet.wav")})

	require.NoError(t, cmd.Execute())
	require.Equal(t, 1, copyCalls)
}

func TestTranscribeCommandToleratesMissingClipboard(t *testing.T) {
	t.Parallel()

	app := testApp(t, &stubEngine{text: "hola"})
	app.copyFn = func(context.Context, string) error { return clipboard.ErrUnavailable }

	cmd := newTranscribeCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--copy", writeAudio(t, "a.wav")})

	require.NoError(t, cmd.Execute())
}

func TestTranscribeCommandExportsToOutputPath(t *testing.T) {
	t.Parallel()

	app := testApp(t, &stubEngine{text: "hola mundo"})
	dest := filepath.Join(t.TempDir(), "exports", "notes")

	cmd := newTranscribeCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"-o", dest, writeAudio(t, "a.wav")})

	require.NoError(t, cmd.Execute())
	exported, err := os.ReadFile(dest + ".txt")
	require.NoError(t, err)
	require.Equal(t, "hola mundo", string(exported))
}

func TestTranscribeCommandReportsEngineFailure(t *testing.T) {
	t.Parallel()

	engineErr := errors.New("decoder exploded")
	app := testApp(t, &stubEngine{err: engineErr})
	source := writeAudio(t, "a.wav")

	out := new(bytes.Buffer)
	cmd := newTranscribeCmd(app)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{source})

	err := cmd.Execute()
	require.Error(t, err)
	require.ErrorIs(t, err, engineErr)
	require.Contains(t, err.Error(), "Transcription failed")
	require.Empty(t, out.String())

	_, statErr := os.Stat(filepath.Join(filepath.Dir(source), "a_transcripcion.txt"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestTranscribeCommandReportsModelLoadFailure(t *testing.T) {
	t.Parallel()

	app := testApp(t, &stubEngine{loadErr: whisper.ErrResourceUnavailable})

	cmd := newTranscribeCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{writeAudio(t, "a.wav")})

	err := cmd.Execute()
	require.ErrorIs(t, err, whisper.ErrResourceUnavailable)
	require.Contains(t, err.Error(), "Could not load model")
}

func TestTranscribeFileRejectsUnknownLanguage(t *testing.T) {
	t.Parallel()

	app := testApp(t, &stubEngine{text: "unused"})
	app.language = "klingon"

	_, err := app.transcribeFile(context.Background(), writeAudio(t, "a.wav"))
	var verr *job.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "language", verr.Field)
}
