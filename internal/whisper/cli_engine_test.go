package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/fmueller/transcriptor/internal/download"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

type copyDecoder struct {
	calls int
	write func(t *testing.T, output string)
	t     *testing.T
}

func (d *copyDecoder) ToWAV(_ context.Context, _ string, output string) error {
	d.calls++
	d.write(d.t, output)
	return nil
}

func writeWAV(t *testing.T, path string, samples []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func loudSamples() []int {
	samples := make([]int, 1600)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 12000
		} else {
			samples[i] = -12000
		}
	}
	return samples
}

func writeModel(t *testing.T, dir string, id ModelID) {
	t.Helper()
	spec, ok := LookupModel(id)
	require.True(t, ok)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, spec.FileName), []byte("model"), 0o644))
}

func argValue(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestLoadModelWithoutExecutable(t *testing.T) {
	t.Parallel()

	engine := NewCLIEngine(CLIConfig{ModelDir: t.TempDir()})
	_, err := engine.LoadModel(context.Background(), ModelSmall)
	require.ErrorIs(t, err, ErrResourceUnavailable)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Equal(t, "load model", engineErr.Op)
}

func TestLoadModelMissingWithoutAutoDownload(t *testing.T) {
	t.Parallel()

	engine := NewCLIEngine(CLIConfig{Executable: "/bin/whisper-cli", ModelDir: t.TempDir()})
	engine.download = func(context.Context, download.Options) error {
		t.Fatal("download must not run")
		return nil
	}

	_, err := engine.LoadModel(context.Background(), ModelBase)
	require.ErrorIs(t, err, ErrResourceUnavailable)
	require.ErrorContains(t, err, "transcriptor setup --model base")
}

func TestLoadModelDownloadsOnceAndCaches(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	engine := NewCLIEngine(CLIConfig{Executable: "/bin/whisper-cli", ModelDir: modelDir, AutoDownload: true})

	downloads := 0
	engine.download = func(_ context.Context, opts download.Options) error {
		downloads++
		spec, _ := LookupModel(ModelTiny)
		require.Equal(t, spec.URL, opts.URL)
		require.Equal(t, spec.SHA256, opts.ExpectedSHA256)
		return os.WriteFile(opts.Destination, []byte("model"), 0o644)
	}

	first, err := engine.LoadModel(context.Background(), ModelTiny)
	require.NoError(t, err)
	require.Equal(t, ModelTiny, first.ID())

	second, err := engine.LoadModel(context.Background(), ModelTiny)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, downloads)
}

func TestLoadModelDownloadFailure(t *testing.T) {
	t.Parallel()

	engine := NewCLIEngine(CLIConfig{Executable: "/bin/whisper-cli", ModelDir: t.TempDir(), AutoDownload: true})
	engine.download = func(context.Context, download.Options) error {
		return download.ErrChecksumMismatch
	}

	_, err := engine.LoadModel(context.Background(), ModelTiny)
	require.ErrorIs(t, err, download.ErrChecksumMismatch)
	require.ErrorContains(t, err, "download model")
}

func TestTranscribeRunsEngineAndReadsOutput(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModel(t, modelDir, ModelSmall)

	decoder := &copyDecoder{t: t, write: func(t *testing.T, output string) { writeWAV(t, output, loudSamples()) }}
	engine := NewCLIEngine(CLIConfig{
		Executable:  "/bin/whisper-cli",
		ModelDir:    modelDir,
		Decoder:     decoder,
		SilenceGate: true,
		SilenceDBFS: -65,
	})

	var gotArgs []string
	engine.run = func(_ context.Context, executable string, args []string) error {
		require.Equal(t, "/bin/whisper-cli", executable)
		gotArgs = args
		return os.WriteFile(argValue(args, "-of")+".txt", []byte("  hola mundo\n"), 0o644)
	}

	handle, err := engine.LoadModel(context.Background(), ModelSmall)
	require.NoError(t, err)

	result, err := handle.Transcribe(context.Background(), "/recordings/a.mp3", Options{Language: MustLanguage("es"), Threads: 2})
	require.NoError(t, err)
	require.Equal(t, "hola mundo", result.Text)
	require.False(t, result.Silent)
	require.Equal(t, 1, decoder.calls)

	require.Equal(t, "es", argValue(gotArgs, "-l"))
	require.Equal(t, "2", argValue(gotArgs, "-t"))
	require.Contains(t, gotArgs, "-nt")
	require.Equal(t, filepath.Join(modelDir, "ggml-small.bin"), argValue(gotArgs, "-m"))
}

func TestTranscribeSilenceGateSkipsEngine(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModel(t, modelDir, ModelSmall)

	decoder := &copyDecoder{t: t, write: func(t *testing.T, output string) { writeWAV(t, output, make([]int, 1600)) }}
	engine := NewCLIEngine(CLIConfig{
		Executable:  "/bin/whisper-cli",
		ModelDir:    modelDir,
		Decoder:     decoder,
		SilenceGate: true,
		SilenceDBFS: -65,
	})
	engine.run = func(context.Context, string, []string) error {
		t.Fatal("engine must not run for silent audio")
		return nil
	}

	handle, err := engine.LoadModel(context.Background(), ModelSmall)
	require.NoError(t, err)

	result, err := handle.Transcribe(context.Background(), "/recordings/quiet.wav", Options{})
	require.NoError(t, err)
	require.True(t, result.Silent)
	require.Equal(t, BlankAudioToken, result.Text)
}

func TestTranscribeWrapsEngineFailure(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModel(t, modelDir, ModelSmall)

	engine := NewCLIEngine(CLIConfig{Executable: "/bin/whisper-cli", ModelDir: modelDir})
	engine.run = func(context.Context, string, []string) error {
		return errors.New("whisper transcribe failed: exit status 1")
	}

	handle, err := engine.LoadModel(context.Background(), ModelSmall)
	require.NoError(t, err)

	_, err = handle.Transcribe(context.Background(), filepath.Join(t.TempDir(), "a.wav"), Options{})
	require.ErrorContains(t, err, "transcribe: whisper transcribe failed")
}

func TestBuildArgsAutoLanguage(t *testing.T) {
	t.Parallel()

	args := buildArgs("/m.bin", "/in.wav", "/out", Options{Language: AutoDetect(), Threads: 4})
	require.Equal(t, []string{"-m", "/m.bin", "-f", "/in.wav", "-nt", "-otxt", "-of", "/out", "-l", "auto", "-t", "4"}, args)
}

func TestEnginePathCandidates(t *testing.T) {
	t.Parallel()

	self := filepath.Join("/opt", "transcriptor", "bin", "transcriptor")
	candidates := EnginePathCandidates(self)
	require.Equal(t, filepath.Join("/opt", "transcriptor", "bin", engineBinaryName()), candidates[0])
	require.Contains(t, candidates, filepath.Join("/opt", "transcriptor", "libexec", "whisper", engineBinaryName()))
}

func TestResolveEnginePathHonoursOverride(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "whisper-cli")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv(EnginePathEnv, binary)

	got, err := ResolveEnginePath("")
	require.NoError(t, err)
	require.Equal(t, binary, got)
}

func TestResolveEnginePathRejectsBadOverride(t *testing.T) {
	t.Setenv(EnginePathEnv, filepath.Join(t.TempDir(), "missing"))

	_, err := ResolveEnginePath("")
	require.ErrorContains(t, err, EnginePathEnv)
}

func TestStderrClassification(t *testing.T) {
	t.Parallel()

	require.True(t, isMissingSharedLibraryError("error while loading shared libraries: libwhisper.so.1"))
	require.False(t, isMissingSharedLibraryError(""))
	require.True(t, isIllegalInstructionError("signal: Illegal instruction"))
	require.Equal(t, "last", lastLine("first\nlast"))
}
