// Package mel extracts log-mel-filterbank features from audio waveforms.
//
// The extractor matches the preprocessing of Parakeet-style acoustic models:
// 16 kHz input, 512-point FFT, 160-sample hop (10 ms), 128 mel bins over
// [0, 8000] Hz on the HTK mel scale. Input at other sample rates is resampled
// before analysis.
package mel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/lorikeet-ml/lorikeet/pkg/audio"
	"github.com/lorikeet-ml/lorikeet/pkg/inference"
)

// logGuard keeps log energies finite for silent input.
const logGuard = 1e-10

// Spectrogram is a sequence of mel feature frames flattened [Frames, Bins]
// in frame-major order. Frame index maps to time as hop/sampleRate.
type Spectrogram struct {
	Data   []float32
	Frames int
	Bins   int
}

// Frame returns the i-th feature frame as a sub-slice of Data.
func (s Spectrogram) Frame(i int) []float32 {
	return s.Data[i*s.Bins : (i+1)*s.Bins]
}

// melFilter is one triangular filter: weights applied to power-spectrum bins
// starting at bin start.
type melFilter struct {
	start   int
	weights []float64
}

// Extractor computes log-mel spectrograms. Construct with [New]; one
// Extractor may serve many Compute calls but is not safe for concurrent use
// (it reuses internal FFT scratch buffers).
type Extractor struct {
	sampleRate int
	fftSize    int
	hopLength  int
	melBins    int

	window  []float64
	filters []melFilter
	fft     *fourier.FFT

	// scratch
	frame  []float64
	coeffs []complex128
	power  []float64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSampleRate sets the target sample rate in Hz. Default 16000.
func WithSampleRate(rate int) Option {
	return func(e *Extractor) { e.sampleRate = rate }
}

// WithFFTSize sets the analysis window length in samples. Default 512.
func WithFFTSize(n int) Option {
	return func(e *Extractor) { e.fftSize = n }
}

// WithHopLength sets the frame advance in samples. Default 160.
func WithHopLength(n int) Option {
	return func(e *Extractor) { e.hopLength = n }
}

// WithMelBins sets the number of mel filterbank bins. Default 128.
func WithMelBins(n int) Option {
	return func(e *Extractor) { e.melBins = n }
}

// New creates an Extractor with the given options applied over the defaults
// (16000 Hz, fft 512, hop 160, 128 bins).
func New(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		sampleRate: audio.DefaultSampleRate,
		fftSize:    512,
		hopLength:  160,
		melBins:    128,
	}
	for _, o := range opts {
		o(e)
	}
	if e.sampleRate <= 0 || e.fftSize <= 0 || e.hopLength <= 0 || e.melBins <= 0 {
		return nil, fmt.Errorf("mel: rate=%d fft=%d hop=%d bins=%d: all parameters must be positive: %w",
			e.sampleRate, e.fftSize, e.hopLength, e.melBins, inference.ErrInvalidInput)
	}

	e.window = hannWindow(e.fftSize)
	e.filters = melFilterbank(e.sampleRate, e.fftSize, e.melBins)
	e.fft = fourier.NewFFT(e.fftSize)
	e.frame = make([]float64, e.fftSize)
	e.coeffs = make([]complex128, e.fftSize/2+1)
	e.power = make([]float64, e.fftSize/2+1)
	return e, nil
}

// Bins returns the number of mel bins per frame.
func (e *Extractor) Bins() int { return e.melBins }

// SampleRate returns the target sample rate.
func (e *Extractor) SampleRate() int { return e.sampleRate }

// HopLength returns the frame advance in samples at the target rate.
func (e *Extractor) HopLength() int { return e.hopLength }

// NumFrames returns the number of frames Compute emits for n samples at the
// target rate: the tail is zero-padded to the next full hop so the last real
// sample is always covered.
func (e *Extractor) NumFrames(n int) int {
	if n <= 0 {
		return 0
	}
	if n <= e.fftSize {
		return 1
	}
	hops := (n - e.fftSize + e.hopLength - 1) / e.hopLength
	return hops + 1
}

// Compute extracts the log-mel spectrogram of a mono waveform. Input at a
// sample rate other than the target is resampled first. Empty input yields an
// empty Spectrogram, not an error; all-zero input yields finite values.
func (e *Extractor) Compute(samples []float32, sampleRate int) (Spectrogram, error) {
	if sampleRate <= 0 {
		return Spectrogram{}, fmt.Errorf("mel: sample rate %d: %w", sampleRate, inference.ErrInvalidInput)
	}
	if sampleRate != e.sampleRate {
		resampled, err := audio.Resample(samples, sampleRate, e.sampleRate)
		if err != nil {
			return Spectrogram{}, fmt.Errorf("mel: %w", err)
		}
		samples = resampled
	}

	frames := e.NumFrames(len(samples))
	out := Spectrogram{
		Data:   make([]float32, frames*e.melBins),
		Frames: frames,
		Bins:   e.melBins,
	}

	for f := 0; f < frames; f++ {
		offset := f * e.hopLength
		for i := 0; i < e.fftSize; i++ {
			if offset+i < len(samples) {
				e.frame[i] = float64(samples[offset+i]) * e.window[i]
			} else {
				e.frame[i] = 0
			}
		}
		e.fft.Coefficients(e.coeffs, e.frame)
		for i, c := range e.coeffs {
			e.power[i] = real(c)*real(c) + imag(c)*imag(c)
		}

		row := out.Data[f*e.melBins : (f+1)*e.melBins]
		for m, filt := range e.filters {
			var energy float64
			for i, w := range filt.weights {
				energy += w * e.power[filt.start+i]
			}
			row[m] = float32(math.Log(energy + logGuard))
		}
	}
	return out, nil
}

// hannWindow returns a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// hzToMel converts Hz to mel on the HTK scale.
func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// melToHz converts mel to Hz on the HTK scale.
func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds bins triangular filters spaced evenly on the mel scale
// over [0, rate/2], applied to the one-sided power spectrum of an fftSize FFT.
func melFilterbank(rate, fftSize, bins int) []melFilter {
	nSpec := fftSize/2 + 1
	maxMel := hzToMel(float64(rate) / 2)

	// bins+2 edge points: each filter rises from edge m to m+1 and falls to m+2.
	edges := make([]float64, bins+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(bins+1))
	}

	binFreq := func(k int) float64 { return float64(k) * float64(rate) / float64(fftSize) }

	filters := make([]melFilter, bins)
	for m := 0; m < bins; m++ {
		lo, center, hi := edges[m], edges[m+1], edges[m+2]
		var start int
		var weights []float64
		for k := 0; k < nSpec; k++ {
			f := binFreq(k)
			var w float64
			switch {
			case f <= lo || f >= hi:
				continue
			case f < center:
				w = (f - lo) / (center - lo)
			default:
				w = (hi - f) / (hi - center)
			}
			if weights == nil {
				start = k
			}
			weights = append(weights, w)
		}
		// Very narrow filters near DC can cover no spectrum bin at all; keep a
		// single zero weight so the filter still emits log(eps).
		if weights == nil {
			weights = []float64{0}
		}
		filters[m] = melFilter{start: start, weights: weights}
	}
	return filters
}
