package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fmueller/transcriptor/internal/clipboard"
	"github.com/fmueller/transcriptor/internal/job"
	"github.com/fmueller/transcriptor/internal/transcript"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	var (
		copyToClipboard bool
		copyEmpty       bool
		exportPath      string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file without the interactive UI",
		Long:  "Transcribe an audio file, print the text and save it as <name>_transcripcion.txt next to the source.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := app.transcribeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), outcome.Text)
			app.log().Info("transcript saved", zap.String("path", outcome.OutputPath))

			blank := transcript.IsBlank(outcome.Text)
			if blank {
				app.log().Warn(noSpeechHint())
			}

			if exportPath != "" {
				written, err := transcript.Export(exportPath, outcome.Text)
				if err != nil {
					return err
				}
				app.log().Info("transcript exported", zap.String("path", written))
			}

			if copyToClipboard {
				if blank && !copyEmpty {
					return nil
				}
				if err := app.copyText(cmd.Context(), outcome.Text); err != nil {
					if errors.Is(err, clipboard.ErrUnavailable) {
						app.log().Warn("clipboard tool unavailable; transcript left on stdout")
						return nil
					}
					return err
				}
				app.log().Info("transcript copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy transcript to clipboard")
	cmd.Flags().BoolVar(&copyEmpty, "copy-empty", false, "Copy blank transcripts to clipboard")
	cmd.Flags().StringVarP(&exportPath, "output", "o", "", "Also write the transcript to this path")
	return cmd
}

// transcribeFile runs one job through the same runner the interactive UI uses and waits for
// its outcome on the calling goroutine.
func (a *appState) transcribeFile(ctx context.Context, rawPath string) (job.Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := job.Validate(rawPath, a.model, a.language)
	if err != nil {
		return job.Outcome{}, err
	}

	var progress io.Writer
	if a.progressEnabled() {
		progress = os.Stderr
	}

	engine, err := a.buildEngine(a.locateDecoder(), progress)
	if err != nil {
		return job.Outcome{}, err
	}

	runner := job.NewRunner(engine, job.SinkFunc(transcript.Save), job.Options{
		Timeout: a.timeout,
		Threads: a.threads,
		Logger:  a.log(),
	})

	ticket, err := runner.Submit(cfg)
	if err != nil {
		return job.Outcome{}, err
	}

	spinners := newPhaseSpinner(a.progressEnabled(), progress != nil)
	defer spinners.stop()

	outcome, err := runner.Await(ctx, ticket, func(ev job.Event) {
		a.log().Info(ev.Phase, zap.String("job", ev.JobID), zap.String("model", string(cfg.Model)), zap.String("language", cfg.Language.String()))
		spinners.show(ev.Phase)
	})
	spinners.stop()
	if err != nil {
		return job.Outcome{}, err
	}

	if !outcome.Succeeded() {
		return outcome, &jobFailedError{outcome: outcome}
	}

	a.log().Info("transcription finished", zap.Duration("elapsed", outcome.Duration), zap.Bool("silent", outcome.Silent))
	return outcome, nil
}

// jobFailedError surfaces a failed outcome as the command error. The message already names
// the cause, so Error does not repeat the wrapped error.
type jobFailedError struct {
	outcome job.Outcome
}

func (e *jobFailedError) Error() string {
	return e.outcome.Message
}

func (e *jobFailedError) Unwrap() error {
	return e.outcome.Err
}

func noSpeechHint() string {
	return "No speech detected. Check that the file contains audible speech and the language setting, then try again."
}
