package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fmueller/transcriptor/internal/clipboard"
	"github.com/fmueller/transcriptor/internal/platform"
	"github.com/fmueller/transcriptor/internal/whisper"
	"github.com/spf13/cobra"
)

func newDoctorCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report which decoder, engine and models are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.doctor(cmd.OutOrStdout())
		},
	}
}

func (a *appState) doctor(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	loc := a.locateDecoder()
	if loc.Found() {
		fmt.Fprintf(w, "ffmpeg\t%s\n", loc.Binary)
	} else {
		fmt.Fprintf(w, "ffmpeg\tnot found (embedded decoder will be used)\n")
	}

	self, _ := os.Executable()
	if engine, err := whisper.ResolveEnginePath(self); err == nil {
		fmt.Fprintf(w, "whisper-cli\t%s\n", engine)
	} else {
		fmt.Fprintf(w, "whisper-cli\tnot found (set %s)\n", whisper.EnginePathEnv)
	}

	if name, ok := clipboard.New().Available(); ok {
		fmt.Fprintf(w, "clipboard\t%s\n", name)
	} else {
		fmt.Fprintf(w, "clipboard\tunavailable\n")
	}

	if path, err := platform.ResolveConfigPath(a.configPath); err == nil {
		fmt.Fprintf(w, "config\t%s\n", path)
	}

	modelDir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		_ = w.Flush()
		return err
	}
	fmt.Fprintf(w, "model dir\t%s\n", modelDir)

	for _, id := range whisper.Models() {
		spec, _ := whisper.LookupModel(id)
		resolved, err := whisper.ResolveModel(id, modelDir)
		state := "missing"
		switch {
		case err != nil:
			state = err.Error()
		case !resolved.NeedsDownload:
			state = "installed"
		}
		marker := ""
		if string(id) == a.model {
			marker = " (selected)"
		}
		fmt.Fprintf(w, "model %s%s\t%s, %s\n", id, marker, state, spec.Size)
	}

	return w.Flush()
}
