package vad

import (
	"math"

	"github.com/lorikeet-ml/lorikeet/pkg/inference"
)

// EnergyModel is a pure-Go RMS-energy implementation of
// [inference.VADModel]. It needs no neural backend, which makes it the
// fallback detector for environments without a Silero-style model and the
// workhorse of the CLI. Accuracy is well below a trained model's — it cannot
// tell speech from other sound — but its segments are good enough for
// chunking recordings with clear pauses.
//
// The smoothed RMS level rides in Hidden[0] so that identical (frame, state)
// inputs always produce identical outputs, matching the recurrent-model
// contract.
type EnergyModel struct {
	// Pivot is the smoothed RMS level that maps to probability 0.5.
	// Default 0.015, a sensible floor for normalized speech recordings.
	Pivot float64

	// Smoothing is the exponential weight given to the previous level,
	// in [0, 1). Default 0.4. Higher values change state more slowly.
	Smoothing float64
}

var _ inference.VADModel = (*EnergyModel)(nil)

// StateSize returns 1: only the smoothed level is carried.
func (m *EnergyModel) StateSize() int { return 1 }

func (m *EnergyModel) pivot() float64 {
	if m.Pivot > 0 {
		return m.Pivot
	}
	return 0.015
}

func (m *EnergyModel) smoothing() float64 {
	if m.Smoothing > 0 {
		return m.Smoothing
	}
	return 0.4
}

// Forward scores one frame by exponentially smoothed RMS energy. The
// probability is level/(level+pivot), which is 0 for silence, 0.5 at the
// pivot level, and approaches 1 for loud input.
func (m *EnergyModel) Forward(frame []float32, state inference.VADState) (float32, inference.VADState, error) {
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	var rms float64
	if len(frame) > 0 {
		rms = math.Sqrt(sum / float64(len(frame)))
	}

	var prev float64
	if len(state.Hidden) > 0 {
		prev = float64(state.Hidden[0])
	}
	a := m.smoothing()
	level := a*prev + (1-a)*rms

	next := inference.VADState{
		Hidden: []float32{float32(level)},
		Cell:   make([]float32, 1),
	}
	prob := level / (level + m.pivot())
	return float32(prob), next, nil
}
