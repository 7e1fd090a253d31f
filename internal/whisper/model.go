package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ModelID names a size/quality tier of the whisper model.
type ModelID string

const (
	ModelTiny   ModelID = "tiny"
	ModelBase   ModelID = "base"
	ModelSmall  ModelID = "small"
	ModelMedium ModelID = "medium"
	ModelLarge  ModelID = "large"
)

const DefaultModel = ModelSmall

var ErrUnknownModel = errors.New("unknown model")

type ModelSpec struct {
	ID       ModelID
	FileName string
	URL      string
	SHA256   string
	Size     string
}

type ResolvedModel struct {
	ID            ModelID
	Path          string
	URL           string
	SHA256        string
	NeedsDownload bool
}

// Ordered smallest first; the UI cycles through them in this order.
var models = []ModelSpec{
	{
		ID:       ModelTiny,
		FileName: "ggml-tiny.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA256:   "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
		Size:     "75 MiB",
	},
	{
		ID:       ModelBase,
		FileName: "ggml-base.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA256:   "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
		Size:     "142 MiB",
	},
	{
		ID:       ModelSmall,
		FileName: "ggml-small.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA256:   "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
		Size:     "466 MiB",
	},
	{
		ID:       ModelMedium,
		FileName: "ggml-medium.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA256:   "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
		Size:     "1.5 GiB",
	},
	{
		ID:       ModelLarge,
		FileName: "ggml-large-v3.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA256:   "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
		Size:     "2.9 GiB",
	},
}

func Models() []ModelID {
	ids := make([]ModelID, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	return ids
}

func LookupModel(id ModelID) (ModelSpec, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// ParseModel accepts exactly one of the known ids. There is no fallback: a typo must not
// silently run a different model size.
func ParseModel(raw string) (ModelID, error) {
	id := ModelID(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := LookupModel(id); !ok {
		return "", fmt.Errorf("%w %q (known models: %s)", ErrUnknownModel, raw, joinModels())
	}
	return id, nil
}

func ResolveModel(id ModelID, modelDir string) (ResolvedModel, error) {
	spec, ok := LookupModel(id)
	if !ok {
		return ResolvedModel{}, fmt.Errorf("%w %q (known models: %s)", ErrUnknownModel, id, joinModels())
	}
	if strings.TrimSpace(modelDir) == "" {
		return ResolvedModel{}, errors.New("model directory must not be empty")
	}

	modelPath := filepath.Join(modelDir, spec.FileName)
	_, statErr := os.Stat(modelPath)
	needsDownload := errors.Is(statErr, os.ErrNotExist)
	if statErr != nil && !needsDownload {
		return ResolvedModel{}, fmt.Errorf("stat model path: %w", statErr)
	}

	return ResolvedModel{
		ID:            spec.ID,
		Path:          modelPath,
		URL:           spec.URL,
		SHA256:        spec.SHA256,
		NeedsDownload: needsDownload,
	}, nil
}

func joinModels() string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, string(m.ID))
	}
	return strings.Join(names, ", ")
}
