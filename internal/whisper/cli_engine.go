package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fmueller/transcriptor/internal/audio"
	"github.com/fmueller/transcriptor/internal/download"
	"go.uber.org/zap"
)

// EnginePathEnv overrides whisper-cli discovery.
const EnginePathEnv = "TRANSCRIPTOR_WHISPER_PATH"

type CLIConfig struct {
	// Executable is the whisper-cli binary. Empty means "not found"; LoadModel then fails
	// with ErrResourceUnavailable.
	Executable   string
	ModelDir     string
	AutoDownload bool
	// DownloadProgress receives the model download progress bar when non-nil.
	DownloadProgress io.Writer
	Decoder          AudioDecoder
	SilenceGate      bool
	SilenceDBFS      float64
	Logger           *zap.Logger
}

// CLIEngine drives the whisper.cpp command line tool. Model handles are cached per id.
type CLIEngine struct {
	cfg CLIConfig

	mu     sync.Mutex
	loaded map[ModelID]*cliModel

	download func(ctx context.Context, opts download.Options) error
	run      func(ctx context.Context, executable string, args []string) error
}

func NewCLIEngine(cfg CLIConfig) *CLIEngine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CLIEngine{
		cfg:      cfg,
		loaded:   make(map[ModelID]*cliModel),
		download: download.File,
		run:      runWhisper,
	}
}

// ResolveEnginePath finds whisper-cli: the override variable first, then next to self, then
// PATH.
func ResolveEnginePath(self string) (string, error) {
	if override := strings.TrimSpace(os.Getenv(EnginePathEnv)); override != "" {
		if err := ensureExecutable(override); err != nil {
			return "", fmt.Errorf("%s is not executable: %w", EnginePathEnv, err)
		}
		return override, nil
	}

	if self != "" {
		for _, candidate := range EnginePathCandidates(self) {
			if err := ensureExecutable(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	if found, err := exec.LookPath(engineBinaryName()); err == nil {
		return found, nil
	}

	return "", fmt.Errorf("%w: whisper engine %s not found near %s or on PATH; set %s", ErrResourceUnavailable, engineBinaryName(), self, EnginePathEnv)
}

func EnginePathCandidates(self string) []string {
	binDir := filepath.Dir(self)
	name := engineBinaryName()

	return []string{
		filepath.Join(binDir, name),
		filepath.Join(binDir, "whisper", name),
		filepath.Join(binDir, "..", "libexec", "whisper", name),
		filepath.Join(binDir, "libexec", "whisper", name),
	}
}

func (e *CLIEngine) LoadModel(ctx context.Context, id ModelID) (ModelHandle, error) {
	if strings.TrimSpace(e.cfg.Executable) == "" {
		return nil, &EngineError{Op: "load model", Err: fmt.Errorf("%w: whisper engine %s not found", ErrResourceUnavailable, engineBinaryName())}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if model, ok := e.loaded[id]; ok {
		if _, err := os.Stat(model.path); err == nil {
			return model, nil
		}
		delete(e.loaded, id)
	}

	resolved, err := ResolveModel(id, e.cfg.ModelDir)
	if err != nil {
		return nil, &EngineError{Op: "load model", Err: err}
	}

	if resolved.NeedsDownload {
		if !e.cfg.AutoDownload {
			return nil, &EngineError{Op: "load model", Err: fmt.Errorf("%w: model %q is missing at %s; run `transcriptor setup --model %s`", ErrResourceUnavailable, id, resolved.Path, id)}
		}

		e.cfg.Logger.Info("model not found, downloading", zap.String("model", string(id)), zap.String("destination", resolved.Path))
		if err := e.download(ctx, download.Options{
			URL:            resolved.URL,
			Destination:    resolved.Path,
			ExpectedSHA256: resolved.SHA256,
			Description:    "downloading " + string(id),
			Progress:       e.cfg.DownloadProgress,
			Logger:         e.cfg.Logger,
		}); err != nil {
			return nil, &EngineError{Op: "download model", Err: fmt.Errorf("model %q: %w", id, err)}
		}
	}

	model := &cliModel{engine: e, id: id, path: resolved.Path}
	e.loaded[id] = model
	return model, nil
}

type cliModel struct {
	engine *CLIEngine
	id     ModelID
	path   string
}

func (m *cliModel) ID() ModelID {
	return m.id
}

func (m *cliModel) Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Result{}, errors.New("audio path is required")
	}

	e := m.engine
	logger := e.cfg.Logger

	workDir, err := os.MkdirTemp("", "transcriptor-*")
	if err != nil {
		return Result{}, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	input := audioPath
	if e.cfg.Decoder != nil {
		input = filepath.Join(workDir, "input.wav")
		if err := e.cfg.Decoder.ToWAV(ctx, audioPath, input); err != nil {
			return Result{}, &EngineError{Op: "decode audio", Err: err}
		}
	}

	if e.cfg.SilenceGate && strings.EqualFold(filepath.Ext(input), ".wav") {
		silent, metrics, err := audio.IsSilentWAV(input, e.cfg.SilenceDBFS)
		switch {
		case err != nil:
			logger.Warn("silence gate analysis failed; continuing transcription", zap.Error(err), zap.String("audio", audioPath))
		case silent:
			logger.Info("audio considered silent; skipping transcription",
				zap.String("audio", audioPath),
				zap.Float64("rms_dbfs", metrics.RMSdBFS),
				zap.Float64("peak_dbfs", metrics.PeakdBFS),
				zap.Float64("threshold_dbfs", e.cfg.SilenceDBFS),
			)
			return Result{Text: BlankAudioToken, Silent: true}, nil
		}
	}

	outBase := filepath.Join(workDir, "transcript")
	args := buildArgs(m.path, input, outBase, opts)

	logger.Debug("running whisper engine", zap.String("engine", e.cfg.Executable), zap.Strings("args", args))
	if err := e.run(ctx, e.cfg.Executable, args); err != nil {
		return Result{}, &EngineError{Op: "transcribe", Err: err}
	}

	content, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return Result{}, &EngineError{Op: "transcribe", Err: fmt.Errorf("read whisper output: %w", err)}
	}

	return Result{Text: strings.TrimSpace(string(content))}, nil
}

func buildArgs(modelPath, input, outBase string, opts Options) []string {
	args := []string{"-m", modelPath, "-f", input, "-nt", "-otxt", "-of", outBase}

	// whisper-cli assumes English when -l is omitted, so auto-detect must be explicit.
	if code, ok := opts.Language.Code(); ok {
		args = append(args, "-l", code)
	} else {
		args = append(args, "-l", AutoLanguage)
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = min(runtime.NumCPU(), 8)
	}
	return append(args, "-t", fmt.Sprint(threads))
}

func runWhisper(ctx context.Context, executable string, args []string) error {
	cmd := exec.CommandContext(ctx, executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return fmt.Errorf("whisper engine crashed with an illegal CPU instruction; " +
				"your CPU may lack required instruction set extensions; " +
				"set " + EnginePathEnv + " to a whisper-cli binary built for your CPU")
		}
		if errText != "" {
			return fmt.Errorf("whisper transcribe failed: %w (%s)", err, lastLine(errText))
		}
		return fmt.Errorf("whisper transcribe failed: %w", err)
	}
	return nil
}

func lastLine(text string) string {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return text
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
