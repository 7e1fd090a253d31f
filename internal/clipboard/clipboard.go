// Package clipboard copies text through the platform's clipboard command.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("no clipboard command available")

const copyTimeout = 4 * time.Second

type command struct {
	name string
	args []string
	// detach leaves the process running after stdin is closed; xclip and xsel keep serving the
	// selection until another program takes it.
	detach bool
}

// Copier writes text to the system clipboard.
type Copier struct {
	goos     string
	lookPath func(string) (string, error)
}

func New() *Copier {
	return &Copier{goos: runtime.GOOS, lookPath: exec.LookPath}
}

// CopyText copies value with the default Copier.
func CopyText(ctx context.Context, value string) error {
	return New().Copy(ctx, value)
}

// Available reports the command Copy would use.
func (c *Copier) Available() (string, bool) {
	cmd, err := c.detect()
	if err != nil {
		return "", false
	}
	return cmd.name, true
}

func (c *Copier) Copy(ctx context.Context, value string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cmd, err := c.detect()
	if err != nil {
		return err
	}

	if cmd.detach {
		return copyDetached(cmd, value)
	}

	copyCtx, cancel := context.WithTimeout(ctx, copyTimeout)
	defer cancel()

	proc := exec.CommandContext(copyCtx, cmd.name, cmd.args...)
	proc.Stdin = strings.NewReader(value)
	proc.Stdout = io.Discard
	proc.Stderr = io.Discard

	if runErr := proc.Run(); runErr != nil {
		if errors.Is(copyCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("copy to clipboard timed out: %w", copyCtx.Err())
		}
		return fmt.Errorf("copy to clipboard with %s: %w", cmd.name, runErr)
	}

	return nil
}

func (c *Copier) detect() (command, error) {
	for _, candidate := range candidatesFor(c.goos) {
		if _, err := c.lookPath(candidate.name); err == nil {
			return candidate, nil
		}
	}
	return command{}, ErrUnavailable
}

func candidatesFor(goos string) []command {
	switch goos {
	case "darwin":
		return []command{{name: "pbcopy"}}
	case "windows":
		return []command{{name: "clip"}}
	default:
		return []command{
			{name: "wl-copy"},
			{name: "xclip", args: []string{"-selection", "clipboard", "-in", "-silent"}, detach: true},
			{name: "xsel", args: []string{"--clipboard", "--input"}, detach: true},
		}
	}
}

func copyDetached(cmd command, value string) error {
	proc := exec.Command(cmd.name, cmd.args...)
	proc.Stdout = io.Discard
	proc.Stderr = io.Discard

	stdin, err := proc.StdinPipe()
	if err != nil {
		return fmt.Errorf("open clipboard stdin: %w", err)
	}

	if err := proc.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := io.WriteString(stdin, value); err != nil {
		_ = stdin.Close()
		_ = proc.Process.Kill()
		return fmt.Errorf("write clipboard data: %w", err)
	}

	if err := stdin.Close(); err != nil {
		_ = proc.Process.Kill()
		return fmt.Errorf("close clipboard stdin: %w", err)
	}

	_ = proc.Process.Release()
	return nil
}
