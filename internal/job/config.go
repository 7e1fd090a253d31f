package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/transcriptor/internal/whisper"
)

var (
	ErrEmptyPath       = errors.New("no audio file selected")
	ErrFileNotFound    = errors.New("audio file not found")
	ErrFileNotReadable = errors.New("audio file not readable")
)

// Configuration is the validated input of one job. It is passed by value; the runner keeps
// its own copy.
type Configuration struct {
	SourcePath string
	Model      whisper.ModelID
	Language   whisper.Language
}

type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate turns raw presentation input into a Configuration. The source must be an existing,
// readable regular file.
func Validate(rawPath, rawModel, rawLanguage string) (Configuration, error) {
	sourcePath, err := validatePath(rawPath)
	if err != nil {
		return Configuration{}, err
	}

	model, err := whisper.ParseModel(rawModel)
	if err != nil {
		return Configuration{}, &ValidationError{Field: "model", Value: rawModel, Err: err}
	}

	lang, err := whisper.ParseLanguage(rawLanguage)
	if err != nil {
		return Configuration{}, &ValidationError{Field: "language", Value: rawLanguage, Err: err}
	}

	return Configuration{SourcePath: sourcePath, Model: model, Language: lang}, nil
}

func validatePath(rawPath string) (string, error) {
	trimmed := strings.TrimSpace(rawPath)
	if trimmed == "" {
		return "", &ValidationError{Field: "path", Err: ErrEmptyPath}
	}

	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", &ValidationError{Field: "path", Value: rawPath, Err: fmt.Errorf("%w: %v", ErrFileNotFound, err)}
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ValidationError{Field: "path", Value: rawPath, Err: ErrFileNotFound}
		}
		return "", &ValidationError{Field: "path", Value: rawPath, Err: fmt.Errorf("%w: %v", ErrFileNotReadable, err)}
	}
	if !info.Mode().IsRegular() {
		return "", &ValidationError{Field: "path", Value: rawPath, Err: fmt.Errorf("%w: not a regular file", ErrFileNotFound)}
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", &ValidationError{Field: "path", Value: rawPath, Err: fmt.Errorf("%w: %v", ErrFileNotReadable, err)}
	}
	_ = f.Close()

	return abs, nil
}
