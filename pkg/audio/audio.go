// Package audio holds the waveform representation shared by the pipeline and
// the conversions that feed it: 16-bit PCM decoding, channel downmixing, and
// sample-rate conversion.
//
// A waveform is a mono []float32 with amplitudes conventionally normalized to
// [-1, 1] plus its sample rate. Waveforms are treated as immutable once
// captured; conversion functions allocate fresh slices.
package audio

import "encoding/binary"

// DefaultSampleRate is the rate all model-facing processing runs at.
const DefaultSampleRate = 16000

// PCM16ToFloat32 converts 16-bit signed little-endian PCM to float32 samples
// normalized to [-1.0, 1.0]. The input length must be even (two bytes per
// sample); a trailing odd byte is silently ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// DownmixMono averages interleaved multi-channel float32 samples into mono.
// If channels <= 1 the input is returned unchanged.
func DownmixMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
