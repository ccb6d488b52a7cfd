package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts a mono waveform from srcRate to dstRate using a
// high-quality polyphase resampler. When the rates already match, the input
// slice is returned unchanged (zero allocation).
func Resample(samples []float32, srcRate, dstRate int) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("audio: resample %d Hz -> %d Hz: rates must be positive", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		return samples, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("audio: create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("audio: resample %d Hz -> %d Hz: %w", srcRate, dstRate, err)
	}

	out := make([]float32, len(output))
	for i, s := range output {
		// Clamp: the filter can overshoot slightly near full-scale transients.
		switch {
		case s > 1.0:
			out[i] = 1.0
		case s < -1.0:
			out[i] = -1.0
		default:
			out[i] = float32(s)
		}
	}
	return out, nil
}
