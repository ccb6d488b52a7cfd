package mel

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/lorikeet-ml/lorikeet/pkg/inference"
)

func mustNew(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func sine(n int, freq float64, rate int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return s
}

func TestNew_InvalidParams(t *testing.T) {
	if _, err := New(WithMelBins(0)); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := New(WithHopLength(-1)); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	e := mustNew(t)
	spec, err := e.Compute(nil, 16000)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if spec.Frames != 0 || len(spec.Data) != 0 {
		t.Errorf("expected empty spectrogram, got %d frames, %d values", spec.Frames, len(spec.Data))
	}
}

func TestCompute_InvalidSampleRate(t *testing.T) {
	e := mustNew(t)
	if _, err := e.Compute([]float32{0}, 0); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNumFrames(t *testing.T) {
	e := mustNew(t)
	tests := []struct {
		name    string
		samples int
		want    int
	}{
		{"empty", 0, 0},
		{"single sample", 1, 1},
		{"exactly one window", 512, 1},
		{"one hop past window", 672, 2},
		{"partial hop pads to full", 673, 3},
		{"one second", 16000, 98},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.NumFrames(tt.samples); got != tt.want {
				t.Errorf("NumFrames(%d) = %d; want %d", tt.samples, got, tt.want)
			}
		})
	}
}

func TestCompute_FrameCountMatchesNumFrames(t *testing.T) {
	e := mustNew(t)
	for _, n := range []int{1, 511, 512, 513, 16000} {
		spec, err := e.Compute(make([]float32, n), 16000)
		if err != nil {
			t.Fatalf("Compute(%d samples): %v", n, err)
		}
		if spec.Frames != e.NumFrames(n) {
			t.Errorf("Compute(%d samples) = %d frames; NumFrames says %d", n, spec.Frames, e.NumFrames(n))
		}
		if len(spec.Data) != spec.Frames*spec.Bins {
			t.Errorf("len(Data) = %d; want %d", len(spec.Data), spec.Frames*spec.Bins)
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	e := mustNew(t)
	rng := rand.New(rand.NewSource(7))
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = rng.Float32()*2 - 1
	}

	first, err := e.Compute(samples, 16000)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := e.Compute(samples, 16000)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(first.Data) != len(second.Data) {
		t.Fatalf("frame counts differ: %d vs %d", first.Frames, second.Frames)
	}
	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("value %d differs between runs: %v vs %v", i, first.Data[i], second.Data[i])
		}
	}
}

func TestCompute_SilenceIsFinite(t *testing.T) {
	e := mustNew(t)
	spec, err := e.Compute(make([]float32, 16000), 16000)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i, v := range spec.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("Data[%d] = %v, want finite", i, v)
		}
	}
}

func TestCompute_RandomInputIsFinite(t *testing.T) {
	e := mustNew(t)
	rng := rand.New(rand.NewSource(42))
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = rng.Float32()*2 - 1
	}
	spec, err := e.Compute(samples, 16000)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i, v := range spec.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("Data[%d] = %v, want finite", i, v)
		}
	}
}

func TestCompute_ToneHasMoreEnergyThanSilence(t *testing.T) {
	e := mustNew(t)
	tone, err := e.Compute(sine(16000, 440, 16000), 16000)
	if err != nil {
		t.Fatalf("Compute(tone): %v", err)
	}
	silence, err := e.Compute(make([]float32, 16000), 16000)
	if err != nil {
		t.Fatalf("Compute(silence): %v", err)
	}
	var toneSum, silenceSum float64
	for _, v := range tone.Data {
		toneSum += float64(v)
	}
	for _, v := range silence.Data {
		silenceSum += float64(v)
	}
	if toneSum <= silenceSum {
		t.Errorf("tone log-energy sum %f should exceed silence sum %f", toneSum, silenceSum)
	}
}

func TestCompute_ResamplesNonTargetRate(t *testing.T) {
	e := mustNew(t)
	// 0.5 s at 32 kHz → about 0.5 s at 16 kHz → about 48 frames.
	spec, err := e.Compute(sine(16000, 440, 32000), 32000)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if spec.Frames < 44 || spec.Frames > 52 {
		t.Errorf("frames = %d; want ≈48 after resampling", spec.Frames)
	}
}

func TestSpectrogram_Frame(t *testing.T) {
	e := mustNew(t, WithMelBins(4))
	spec, err := e.Compute(make([]float32, 1000), 16000)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if spec.Bins != 4 {
		t.Fatalf("bins = %d; want 4", spec.Bins)
	}
	for i := 0; i < spec.Frames; i++ {
		if got := len(spec.Frame(i)); got != 4 {
			t.Fatalf("Frame(%d) length = %d; want 4", i, got)
		}
	}
}
