package cli

import (
	"errors"
	"fmt"
	"os"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/fmueller/transcriptor/internal/job"
	"github.com/fmueller/transcriptor/internal/transcript"
	"github.com/fmueller/transcriptor/internal/tui"
	"github.com/fmueller/transcriptor/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var errNoTerminal = errors.New("the interactive UI needs a terminal; use `transcriptor transcribe <audio-file>` instead")

func (a *appState) runInteractive(cmd *cobra.Command, initialPath string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNoTerminal
	}

	defaultModel, err := whisper.ParseModel(a.model)
	if err != nil {
		return err
	}
	defaultLanguage, err := whisper.ParseLanguage(a.language)
	if err != nil {
		return err
	}

	cfg, err := a.interactiveConfig()
	if err != nil {
		return err
	}
	cfg.DefaultModel = defaultModel
	cfg.DefaultLanguage = defaultLanguage
	cfg.InitialPath = initialPath

	program := bubbletea.NewProgram(tui.New(cfg), bubbletea.WithAltScreen(), bubbletea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// interactiveConfig wires the runner the UI submits to. Model downloads report through the
// log file only; a progress bar on stderr would tear the screen.
func (a *appState) interactiveConfig() (tui.Config, error) {
	loc := a.locateDecoder()

	engine, err := a.buildEngine(loc, nil)
	if err != nil {
		return tui.Config{}, err
	}

	runner := job.NewRunner(engine, job.SinkFunc(transcript.Save), job.Options{
		Timeout: a.timeout,
		Threads: a.threads,
		Logger:  a.log(),
	})

	status := loc.String()
	if !loc.Found() {
		status = "not found, using the embedded decoder"
	}

	a.log().Info("interactive session started", zap.String("ffmpeg", loc.String()), zap.String("model", a.model), zap.String("language", a.language))

	return tui.Config{
		Runner:         runner,
		Models:         whisper.Models(),
		Languages:      whisper.CommonLanguages(),
		DecoderStatus:  status,
		DecoderWarning: !loc.Found(),
		Copy:           a.copyText,
		Export:         transcript.Export,
		Logger:         a.log(),
	}, nil
}
