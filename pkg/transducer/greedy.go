package transducer

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorikeet-ml/lorikeet/pkg/inference"
)

// ErrBeamUnsupported is returned by [Decoder.DecodeBeam]. Beam search needs
// its own specification (path merging, pruning, tie-breaks) and is not
// derivable from the greedy algorithm.
var ErrBeamUnsupported = errors.New("transducer: beam search decoding is not implemented")

// Decoder performs greedy transducer decoding over encoder output.
//
// One Decoder is immutable after construction and safe to share across
// segments and goroutines: all per-segment state (time index, recurrent
// predictor state, last token) lives on the Decode call stack, never on the
// Decoder. The model handles passed to Decode are the caller's to serialize.
type Decoder struct {
	vocab      Vocabulary
	maxSymbols int
	durations  []int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxSymbolsPerFrame caps the tokens emitted without time advancing,
// guarding against degenerate zero-duration loops. Default 10.
func WithMaxSymbolsPerFrame(n int) Option {
	return func(d *Decoder) { d.maxSymbols = n }
}

// WithDurations sets the frame-advance value of each duration class, indexed
// by duration-logit position. Default {0, 1, 2, 3, 4}. Only consulted for
// models whose joint output carries duration logits.
func WithDurations(durations []int) Option {
	return func(d *Decoder) { d.durations = append([]int(nil), durations...) }
}

// NewDecoder creates a Decoder for the given vocabulary.
func NewDecoder(vocab Vocabulary, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		vocab:      vocab,
		maxSymbols: 10,
		durations:  []int{0, 1, 2, 3, 4},
	}
	for _, o := range opts {
		o(d)
	}
	if d.maxSymbols <= 0 {
		return nil, fmt.Errorf("transducer: max symbols per frame %d must be positive: %w", d.maxSymbols, inference.ErrInvalidInput)
	}
	if len(d.durations) == 0 {
		return nil, fmt.Errorf("transducer: duration table must not be empty: %w", inference.ErrInvalidInput)
	}
	for i, dur := range d.durations {
		if dur < 0 {
			return nil, fmt.Errorf("transducer: duration class %d is negative (%d): %w", i, dur, inference.ErrInvalidInput)
		}
	}
	return d, nil
}

// Vocabulary returns the decoder's vocabulary.
func (d *Decoder) Vocabulary() Vocabulary { return d.vocab }

// Decode greedily decodes encoder output flattened [frames, hiddenDim] into a
// token-id sequence, driving pred and joint with fresh per-segment state.
//
// numFrames limits decoding to the first numFrames frames; 0 means all
// available frames. Time advances by the model's predicted duration when the
// joint emits duration logits (TDT); otherwise only a blank advances time
// (classic RNN-T), and a blank always advances at least one frame. Emission
// at a fixed time index is capped at the configured per-frame symbol limit,
// after which time is forced forward.
//
// Cancellation is checked once per time step. On model failure the partial
// token sequence is discarded and the error — a *inference.ModelError for
// backend faults — is returned.
func (d *Decoder) Decode(ctx context.Context, encoded []float32, hiddenDim, numFrames int, pred inference.Predictor, joint inference.Joint) ([]int, error) {
	if pred == nil || joint == nil {
		return nil, fmt.Errorf("transducer: nil model handle: %w", inference.ErrNotReady)
	}
	if hiddenDim <= 0 {
		return nil, fmt.Errorf("transducer: hidden dim %d must be positive: %w", hiddenDim, inference.ErrInvalidInput)
	}
	if len(encoded)%hiddenDim != 0 {
		return nil, fmt.Errorf("transducer: encoder output length %d is not a multiple of hidden dim %d: %w",
			len(encoded), hiddenDim, inference.ErrInvalidInput)
	}
	available := len(encoded) / hiddenDim
	if numFrames == 0 {
		numFrames = available
	}
	if numFrames < 0 || numFrames > available {
		return nil, fmt.Errorf("transducer: numFrames %d out of range [0, %d]: %w", numFrames, available, inference.ErrInvalidInput)
	}

	blank := d.vocab.BlankID()

	// The prediction for the start sentinel; recomputed only after a token is
	// emitted, since blanks leave the prediction network untouched.
	state := pred.InitialState()
	predVec, nextState, err := pred.Predict(ctx, blank, state)
	if err != nil {
		return nil, fmt.Errorf("transducer: initial prediction: %w", err)
	}

	var tokens []int
	t := 0
	symbols := 0 // emissions at the current time index

	for t < numFrames {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("transducer: decode cancelled at frame %d: %w", t, err)
		}

		encFrame := encoded[t*hiddenDim : (t+1)*hiddenDim]
		out, err := joint.Joint(ctx, encFrame, predVec)
		if err != nil {
			return nil, fmt.Errorf("transducer: joint at frame %d: %w", t, err)
		}
		if len(out.TokenLogits) <= blank {
			return nil, inference.Errorf("joint", "token logits have %d entries, blank id %d out of range", len(out.TokenLogits), blank)
		}

		durationAware := len(out.DurationLogits) > 0
		duration := 0
		if durationAware {
			if len(out.DurationLogits) != len(d.durations) {
				return nil, inference.Errorf("joint", "duration logits have %d entries, duration table has %d", len(out.DurationLogits), len(d.durations))
			}
			duration = d.durations[argmax(out.DurationLogits)]
		}

		k := argmax(out.TokenLogits)
		if k == blank {
			// Advance time without touching the prediction state. A blank
			// must always make progress.
			step := duration
			if step < 1 {
				step = 1
			}
			t += step
			symbols = 0
			continue
		}

		tokens = append(tokens, k)
		state = nextState
		predVec, nextState, err = pred.Predict(ctx, k, state)
		if err != nil {
			return nil, fmt.Errorf("transducer: prediction after token %d: %w", k, err)
		}

		if durationAware {
			t += duration
			if duration > 0 {
				symbols = 0
				continue
			}
		}
		symbols++
		if symbols >= d.maxSymbols {
			t++
			symbols = 0
		}
	}
	return tokens, nil
}

// DecodeBeam is a placeholder for transducer beam search and always returns
// [ErrBeamUnsupported].
func (d *Decoder) DecodeBeam(ctx context.Context, encoded []float32, hiddenDim, beamWidth int, pred inference.Predictor, joint inference.Joint) ([]int, error) {
	return nil, ErrBeamUnsupported
}

// argmax returns the index of the largest value; ties go to the first.
func argmax(values []float32) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
