// Package transcript stores finished transcriptions next to their source audio.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/transcriptor/internal/clipboard"
	"github.com/fmueller/transcriptor/internal/whisper"
)

// Suffix is appended to the source stem to name the transcript file.
const Suffix = "_transcripcion"

var ErrEmptyDestination = errors.New("destination path is required")

// OutputPath derives the transcript path for source: same directory and stem, fixed suffix,
// .txt extension.
func OutputPath(source string) string {
	dir := filepath.Dir(source)
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+Suffix+".txt")
}

// Save writes text to OutputPath(source), replacing any previous transcript.
func Save(source, text string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", errors.New("source path is required")
	}
	path := OutputPath(source)
	if err := writeFile(path, text); err != nil {
		return "", err
	}
	return path, nil
}

// Export writes text to a user-chosen path.
func Export(dest, text string) (string, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", ErrEmptyDestination
	}
	if filepath.Ext(dest) == "" {
		dest += ".txt"
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	if err := writeFile(dest, text); err != nil {
		return "", err
	}
	return dest, nil
}

func Copy(ctx context.Context, text string) error {
	return clipboard.CopyText(ctx, text)
}

// IsBlank reports transcripts without speech.
func IsBlank(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	return strings.EqualFold(trimmed, whisper.BlankAudioToken)
}

// writeFile stages text in a sibling temp file and renames it over path so readers never see
// a half-written transcript. Go strings are written as-is, which keeps them UTF-8.
func writeFile(path, text string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create transcript file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close transcript: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod transcript: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace transcript: %w", err)
	}
	return nil
}
