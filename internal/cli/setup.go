package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fmueller/transcriptor/internal/config"
	"github.com/fmueller/transcriptor/internal/download"
	"github.com/fmueller/transcriptor/internal/platform"
	"github.com/fmueller/transcriptor/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type downloadFunc func(ctx context.Context, opts download.Options) error

func newSetupCmd(app *appState) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download and verify speech model assets",
		Long:  "Download the selected model ahead of the first transcription and optionally write a config.yml with the current settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.installModel(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			if writeConfig {
				return app.writeConfig(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Write config.yml with the current settings if it does not exist")
	return cmd
}

func (a *appState) installModel(ctx context.Context, out io.Writer) error {
	id, err := whisper.ParseModel(a.model)
	if err != nil {
		return err
	}

	modelDir, err := a.modelStorageDir()
	if err != nil {
		return err
	}

	resolved, err := whisper.ResolveModel(id, modelDir)
	if err != nil {
		return err
	}

	if !resolved.NeedsDownload {
		if err := download.VerifyFileChecksum(resolved.Path, resolved.SHA256); err != nil {
			a.log().Warn("model checksum verification failed; downloading fresh copy", zap.String("model", string(id)), zap.Error(err))
			resolved.NeedsDownload = true
		}
	}

	if !resolved.NeedsDownload {
		a.log().Info("model already present", zap.String("model", string(id)), zap.String("path", resolved.Path))
		fmt.Fprintf(out, "Model %s already present at %s\n", id, resolved.Path)
		return nil
	}

	var progress io.Writer
	if a.progressEnabled() {
		progress = os.Stderr
	}

	fetch := a.downloadFn
	if fetch == nil {
		fetch = download.File
	}

	a.log().Info("downloading model", zap.String("model", string(id)), zap.String("path", resolved.Path))
	if err := fetch(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		Description:    "downloading " + string(id),
		Progress:       progress,
		Logger:         a.log(),
	}); err != nil {
		return fmt.Errorf("download model %s: %w", id, err)
	}

	fmt.Fprintf(out, "Model %s installed at %s\n", id, resolved.Path)
	return nil
}

func (a *appState) writeConfig(out io.Writer) error {
	path, err := platform.ResolveConfigPath(a.configPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Config already exists at %s\n", path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	cfg := a.effectiveConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Config written to %s\n", path)
	return nil
}

func (a *appState) effectiveConfig() config.Config {
	cfg := config.Default()
	cfg.Model = a.model
	cfg.Language = a.language
	cfg.ModelDir = a.modelDir
	cfg.AutoDownload = a.autoDownload
	cfg.FFmpegDirs = a.ffmpegDirs
	cfg.SilenceGate = a.silenceGate
	cfg.SilenceThresholdDBFS = a.silenceDBFS
	if a.timeout > 0 {
		cfg.Timeout = a.timeout.String()
	}
	return cfg
}
