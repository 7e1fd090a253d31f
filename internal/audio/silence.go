// Package audio inspects decoded PCM audio before it reaches the speech model.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

const pcmFormat = 1

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

type SilenceMetrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// IsSilentWAV reports whether the PCM WAV at path stays below thresholdDBFS. The peak may
// exceed the threshold by 6 dB to tolerate isolated clicks.
func IsSilentWAV(path string, thresholdDBFS float64) (bool, SilenceMetrics, error) {
	metrics, err := AnalyzeWAV(path)
	if err != nil {
		return false, SilenceMetrics{}, err
	}

	if metrics.Samples == 0 {
		return true, metrics, nil
	}

	if math.IsInf(metrics.RMSdBFS, -1) && math.IsInf(metrics.PeakdBFS, -1) {
		return true, metrics, nil
	}

	peakGate := thresholdDBFS + 6
	return metrics.RMSdBFS <= thresholdDBFS && metrics.PeakdBFS <= peakGate, metrics, nil
}

func AnalyzeWAV(path string) (SilenceMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return SilenceMetrics{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return SilenceMetrics{}, ErrInvalidWAV
	}
	if decoder.WavAudioFormat != pcmFormat {
		return SilenceMetrics{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, decoder.WavAudioFormat)
	}

	fullScale, err := fullScaleFor(int(decoder.BitDepth))
	if err != nil {
		return SilenceMetrics{}, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return SilenceMetrics{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	var peak, sumSquares float64
	unsigned := decoder.BitDepth == 8
	for _, raw := range buf.Data {
		if unsigned {
			raw -= 128
		}
		value := float64(raw) / fullScale
		if abs := math.Abs(value); abs > peak {
			peak = abs
		}
		sumSquares += value * value
	}

	samples := int64(len(buf.Data))
	if samples == 0 {
		return SilenceMetrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	rms := math.Sqrt(sumSquares / float64(samples))
	return SilenceMetrics{
		RMSdBFS:  amplitudeToDBFS(rms),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

func fullScaleFor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedWAV, bitDepth)
	}
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
