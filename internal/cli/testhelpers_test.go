package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/transcriptor/internal/ffmpeg"
	"github.com/fmueller/transcriptor/internal/whisper"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yml")}, args...))

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

type stubEngine struct {
	text    string
	err     error
	loadErr error
	gotLang string
}

func (e *stubEngine) LoadModel(_ context.Context, id whisper.ModelID) (whisper.ModelHandle, error) {
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return &stubHandle{engine: e, id: id}, nil
}

type stubHandle struct {
	engine *stubEngine
	id     whisper.ModelID
}

func (h *stubHandle) ID() whisper.ModelID { return h.id }

func (h *stubHandle) Transcribe(_ context.Context, _ string, opts whisper.Options) (whisper.Result, error) {
	h.engine.gotLang = opts.Language.String()
	if h.engine.err != nil {
		return whisper.Result{}, h.engine.err
	}
	return whisper.Result{Text: h.engine.text}, nil
}

// testApp returns an appState with defaults and all external collaborators stubbed.
func testApp(t *testing.T, engine *stubEngine) *appState {
	t.Helper()

	app := newAppState()
	app.noProgress = true
	app.modelDir = t.TempDir()
	app.locateFn = func() ffmpeg.Location { return ffmpeg.Location{} }
	app.engineFn = func(ffmpeg.Location, io.Writer) whisper.Engine { return engine }
	app.copyFn = func(context.Context, string) error { return nil }
	return app
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0o644))
	return path
}

func makePCM16WAVForTest(samples []int16, sampleRate int, channels int) []byte {
	bytesPerSample := 2
	dataSize := len(samples) * bytesPerSample
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	out := make([]byte, 12+8+fmtChunkSize+8+dataSize)
	off := 0

	copy(out[off:], []byte("RIFF"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(riffSize))
	off += 4
	copy(out[off:], []byte("WAVE"))
	off += 4

	copy(out[off:], []byte("fmt "))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(fmtChunkSize))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], uint16(channels))
	off += 2
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate*channels*bytesPerSample))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], uint16(channels*bytesPerSample))
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 16)
	off += 2

	copy(out[off:], []byte("data"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(dataSize))
	off += 4

	for _, s := range samples {
		binary.LittleEndian.PutUint16(out[off:], uint16(s))
		off += 2
	}

	return out
}
