package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// Decoder converts input audio to PCM WAV. It uses the located ffmpeg when there is one and
// the embedded WebAssembly build otherwise.
type Decoder struct {
	Location Location
	Logger   *zap.Logger

	runBinary   func(ctx context.Context, binary string, args []string) error
	runEmbedded func(ctx context.Context, args []string, mounts []string) error
}

func NewDecoder(loc Location, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		Location:    loc,
		Logger:      logger,
		runBinary:   runBinary,
		runEmbedded: runEmbedded,
	}
}

// ToWAV writes a 16 kHz mono pcm_s16le copy of input to output, replacing output if present.
func (d *Decoder) ToWAV(ctx context.Context, input, output string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("input path is required")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("output path is required")
	}

	absInput, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	args := conversionArgs(absInput, absOutput)
	logger := d.logger()

	if d.Location.Found() {
		logger.Debug("decoding audio", zap.String("ffmpeg", d.Location.Binary), zap.Strings("args", args))
		run := d.runBinary
		if run == nil {
			run = runBinary
		}
		if err := run(ctx, d.Location.Binary, args); err != nil {
			return fmt.Errorf("decode %s: %w", filepath.Base(input), err)
		}
		return nil
	}

	logger.Debug("decoding audio with embedded ffmpeg", zap.Strings("args", args))
	run := d.runEmbedded
	if run == nil {
		run = runEmbedded
	}
	if err := run(ctx, args, []string{filepath.Dir(absInput), filepath.Dir(absOutput)}); err != nil {
		return fmt.Errorf("decode %s with embedded ffmpeg: %w", filepath.Base(input), err)
	}
	return nil
}

func (d *Decoder) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func conversionArgs(input, output string) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-vn",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(Channels),
		"-c:a", "pcm_s16le",
		output,
	}
}

func runBinary(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if text := strings.TrimSpace(stderr.String()); text != "" {
			return fmt.Errorf("ffmpeg failed: %w (%s)", err, text)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

func runEmbedded(ctx context.Context, args []string, mounts []string) error {
	var stderr bytes.Buffer
	rc, err := ffmpreg.Ffmpeg(ctx, wasm.Args{
		Stderr: &stderr,
		Stdout: io.Discard,
		Args:   args,
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			fs := wazero.NewFSConfig()
			for _, dir := range mounts {
				fs = fs.WithDirMount(dir, dir)
			}
			return cfg.WithFSConfig(fs)
		},
	})
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	if rc != 0 {
		if text := strings.TrimSpace(stderr.String()); text != "" {
			return fmt.Errorf("ffmpeg exited with code %d (%s)", rc, text)
		}
		return fmt.Errorf("ffmpeg exited with code %d", rc)
	}
	return nil
}
