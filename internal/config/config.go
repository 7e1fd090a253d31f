// Package config reads the optional config.yml with user defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/transcriptor/internal/whisper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSilenceThresholdDBFS = -65.0
	DefaultModel                = whisper.DefaultModel
	DefaultLanguage             = "es"
)

type Config struct {
	// Model is the whisper tier preselected in the UI (tiny, base, small, medium, large).
	Model string `yaml:"model,omitempty"`

	// Language is a whisper language code or "auto".
	Language string `yaml:"language,omitempty"`

	// ModelDir overrides where model files are stored.
	ModelDir string `yaml:"model_dir,omitempty"`

	AutoDownload bool `yaml:"auto_download"`

	// FFmpegDirs are probed for ffmpeg before the built-in locations.
	FFmpegDirs []string `yaml:"ffmpeg_dirs,omitempty"`

	// Timeout bounds one transcription, e.g. "20m". Empty means no limit.
	Timeout string `yaml:"timeout,omitempty"`

	SilenceGate          bool    `yaml:"silence_gate"`
	SilenceThresholdDBFS float64 `yaml:"silence_threshold_dbfs,omitempty"`
}

func Default() Config {
	return Config{
		Model:                string(DefaultModel),
		Language:             DefaultLanguage,
		AutoDownload:         true,
		SilenceGate:          true,
		SilenceThresholdDBFS: DefaultSilenceThresholdDBFS,
	}
}

// Load reads path on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.ModelDir = expandPath(cfg.ModelDir)
	for i, dir := range cfg.FFmpegDirs {
		cfg.FFmpegDirs[i] = expandPath(dir)
	}
	if cfg.SilenceThresholdDBFS == 0 {
		cfg.SilenceThresholdDBFS = DefaultSilenceThresholdDBFS
	}

	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the UI would otherwise reject only at submit time.
func (c Config) Validate() error {
	if _, err := whisper.ParseModel(c.Model); err != nil {
		return err
	}
	if _, err := whisper.ParseLanguage(c.Language); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.SilenceThresholdDBFS > 0 {
		return fmt.Errorf("silence_threshold_dbfs must be <= 0, got %v", c.SilenceThresholdDBFS)
	}
	return nil
}

func (c Config) TimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(c.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative, got %s", raw)
	}
	return d, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# transcriptor configuration file\n# Flags passed on the command line take precedence.\n\n"
	return os.WriteFile(path, []byte(header+string(data)), 0o644)
}

func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != '\\' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimLeft(path[1:], `/\`))
}
