package whisper

import (
	"context"
	"errors"
	"fmt"
)

// BlankAudioToken is what whisper.cpp emits for audio without speech.
const BlankAudioToken = "[BLANK_AUDIO]"

// ErrResourceUnavailable marks failures caused by a missing engine binary or model file.
var ErrResourceUnavailable = errors.New("resource unavailable")

type Options struct {
	Language Language
	Threads  int
}

type Result struct {
	Text string
	// Silent is set when the silence gate short-circuited inference.
	Silent bool
}

// Engine loads models. Loading may download the model on first use and is cached per
// ModelID for the life of the engine.
type Engine interface {
	LoadModel(ctx context.Context, id ModelID) (ModelHandle, error)
}

type ModelHandle interface {
	ID() ModelID
	Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error)
}

// AudioDecoder turns any supported container into 16 kHz mono WAV.
type AudioDecoder interface {
	ToWAV(ctx context.Context, input, output string) error
}

// EngineError reports which engine operation failed.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
