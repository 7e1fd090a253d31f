package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fmueller/transcriptor/internal/clipboard"
	"github.com/fmueller/transcriptor/internal/config"
	"github.com/fmueller/transcriptor/internal/ffmpeg"
	"github.com/fmueller/transcriptor/internal/logging"
	"github.com/fmueller/transcriptor/internal/platform"
	"github.com/fmueller/transcriptor/internal/version"
	"github.com/fmueller/transcriptor/internal/whisper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	configPath   string
	model        string
	modelDir     string
	language     string
	autoDownload bool
	silenceGate  bool
	silenceDBFS  float64
	timeout      time.Duration
	threads      int
	ffmpegDirs   []string

	logger *zap.Logger
	out    io.Writer

	locateFn   func() ffmpeg.Location
	engineFn   func(loc ffmpeg.Location, progress io.Writer) whisper.Engine
	copyFn     func(ctx context.Context, value string) error
	downloadFn downloadFunc
}

func newAppState() *appState {
	defaults := config.Default()
	return &appState{
		model:        defaults.Model,
		language:     defaults.Language,
		autoDownload: defaults.AutoDownload,
		silenceGate:  defaults.SilenceGate,
		silenceDBFS:  defaults.SilenceThresholdDBFS,
		out:          os.Stdout,
	}
}

func NewRootCmd() *cobra.Command {
	app := newAppState()

	cmd := &cobra.Command{
		Use:           "transcriptor [audio-file]",
		Short:         "Transcribe local audio files with whisper models",
		Long:          "Pick an audio file, transcribe it with a whisper model and save the text next to it.\nWithout a subcommand an interactive terminal UI is started.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := ""
			if len(args) == 1 {
				initial = args[0]
			}
			return app.runInteractive(cmd, initial)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindDecoderAndSilenceFlags(cmd, app)

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().StringVar(&app.configPath, "config", app.configPath, "Path to config.yml (default: platform config directory)")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.model, "model", app.model, "Model tier: tiny|base|small|medium|large")
	cmd.PersistentFlags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.language, "language", app.language, "Language code (auto|es|en|...) for transcription")
	cmd.PersistentFlags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
	cmd.PersistentFlags().DurationVar(&app.timeout, "timeout", app.timeout, "Abort a transcription after this long; 0 means no limit")
	cmd.PersistentFlags().IntVar(&app.threads, "threads", app.threads, "Inference threads; 0 picks a default from the CPU count")
}

func bindDecoderAndSilenceFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringSliceVar(&app.ffmpegDirs, "ffmpeg-dir", app.ffmpegDirs, "Extra directory to search for ffmpeg (repeatable)")
	cmd.PersistentFlags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent audio and skip transcription")
	cmd.PersistentFlags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

// prepare loads config.yml underneath the flags and sets up logging. The interactive UI owns
// the terminal, so it logs to a file instead of stderr.
func (a *appState) prepare(cmd *cobra.Command) error {
	logOpts := logging.Options{Verbose: a.verbose, JSON: a.jsonLogs}
	if !cmd.HasParent() {
		logPath, err := platform.ResolveLogPath()
		if err == nil {
			logOpts.File = logPath
		}
	}

	logger, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger

	configPath, err := platform.ResolveConfigPath(a.configPath)
	if err != nil {
		a.log().Warn("cannot resolve config path; using defaults", zap.Error(err))
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if cmd.Flags().Changed("config") {
			return err
		}
		a.log().Warn("ignoring invalid config file", zap.String("path", configPath), zap.Error(err))
	}
	return a.applyConfig(cmd, cfg)
}

func (a *appState) applyConfig(cmd *cobra.Command, cfg config.Config) error {
	flags := cmd.Flags()

	if !flags.Changed("model") {
		a.model = cfg.Model
	}
	if !flags.Changed("language") {
		a.language = cfg.Language
	}
	if !flags.Changed("model-dir") && cfg.ModelDir != "" {
		a.modelDir = cfg.ModelDir
	}
	if !flags.Changed("auto-download") {
		a.autoDownload = cfg.AutoDownload
	}
	if !flags.Changed("silence-gate") {
		a.silenceGate = cfg.SilenceGate
	}
	if !flags.Changed("silence-threshold-dbfs") {
		a.silenceDBFS = cfg.SilenceThresholdDBFS
	}
	if !flags.Changed("timeout") {
		timeout, err := cfg.TimeoutDuration()
		if err != nil {
			return err
		}
		a.timeout = timeout
	}
	a.ffmpegDirs = append(a.ffmpegDirs, cfg.FFmpegDirs...)
	return nil
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

// locateDecoder probes for ffmpeg and publishes the hit to the process environment. A miss is
// only a warning: decoding then falls back to the embedded build.
func (a *appState) locateDecoder() ffmpeg.Location {
	if a.locateFn != nil {
		return a.locateFn()
	}

	loc, ok := ffmpeg.Locate(a.decoderCandidates())
	if !ok {
		a.log().Warn("ffmpeg not found; using the embedded decoder, which is slower")
		return ffmpeg.Location{}
	}

	if err := ffmpeg.Publish(loc, ffmpeg.ProcessEnv); err != nil {
		a.log().Warn("failed to publish ffmpeg location", zap.Error(err))
	}
	a.log().Debug("ffmpeg located", zap.String("binary", loc.Binary))
	return loc
}

func (a *appState) decoderCandidates() []string {
	appDir := ""
	if self, err := os.Executable(); err == nil {
		appDir = filepath.Dir(self)
	}
	workDir, _ := os.Getwd()
	dirs, err := platform.CurrentDirs()
	if err != nil {
		a.log().Debug("platform directories unavailable", zap.Error(err))
	}

	candidates := platform.DecoderSearchDirs(runtime.GOOS, appDir, workDir, dirs, a.ffmpegDirs)
	return append(candidates, filepath.SplitList(os.Getenv("PATH"))...)
}

func (a *appState) buildEngine(loc ffmpeg.Location, progress io.Writer) (whisper.Engine, error) {
	if a.engineFn != nil {
		return a.engineFn(loc, progress), nil
	}

	modelDir, err := a.modelStorageDir()
	if err != nil {
		return nil, err
	}

	self, _ := os.Executable()
	executable, err := whisper.ResolveEnginePath(self)
	if err != nil {
		a.log().Warn("whisper engine unavailable", zap.Error(err))
		executable = ""
	}

	return whisper.NewCLIEngine(whisper.CLIConfig{
		Executable:       executable,
		ModelDir:         modelDir,
		AutoDownload:     a.autoDownload,
		DownloadProgress: progress,
		Decoder:          ffmpeg.NewDecoder(loc, a.log()),
		SilenceGate:      a.silenceGate,
		SilenceDBFS:      a.silenceDBFS,
		Logger:           a.log(),
	}), nil
}

func (a *appState) copyText(ctx context.Context, value string) error {
	if a.copyFn != nil {
		return a.copyFn(ctx, value)
	}
	return clipboard.CopyText(ctx, value)
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}
