package transducer

import (
	"context"
	"errors"
	"testing"

	"github.com/lorikeet-ml/lorikeet/pkg/inference"
	"github.com/lorikeet-ml/lorikeet/pkg/inference/mock"
)

// testVocab builds a small vocabulary with blank id == len(tokens).
func testVocab(t *testing.T, tokens ...string) Vocabulary {
	t.Helper()
	v, err := NewVocabulary(tokens, len(tokens))
	if err != nil {
		t.Fatalf("NewVocabulary: %v", err)
	}
	return v
}

// logits builds a logit vector of size n with a single peak at index k.
func logits(n, k int) []float32 {
	l := make([]float32, n)
	l[k] = 5
	return l
}

func newTestDecoder(t *testing.T, vocab Vocabulary, opts ...Option) *Decoder {
	t.Helper()
	d, err := NewDecoder(vocab, opts...)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return d
}

func TestNewVocabulary_Invalid(t *testing.T) {
	if _, err := NewVocabulary([]string{"a"}, -1); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("negative blank: expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewVocabulary([]string{"a", "b"}, 1); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("colliding blank: expected ErrInvalidInput, got %v", err)
	}
}

func TestVocabulary_Detokenize(t *testing.T) {
	v := testVocab(t, "▁he", "llo", "▁wor", "ld", "!")
	tests := []struct {
		name string
		ids  []int
		want string
	}{
		{"empty", nil, ""},
		{"word pieces", []int{0, 1, 2, 3, 4}, "he llo wor ld!"},
		{"skips blank and out of range", []int{0, 5, -1, 99, 1}, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Detokenize(tt.ids); got != tt.want {
				t.Errorf("Detokenize(%v) = %q; want %q", tt.ids, got, tt.want)
			}
		})
	}
}

func TestDecode_InvalidInput(t *testing.T) {
	v := testVocab(t, "a", "b")
	d := newTestDecoder(t, v)
	pred := &mock.Predictor{}
	joint := &mock.Joint{}
	ctx := context.Background()

	if _, err := d.Decode(ctx, make([]float32, 4), 0, 0, pred, joint); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("zero dim: expected ErrInvalidInput, got %v", err)
	}
	if _, err := d.Decode(ctx, make([]float32, 5), 2, 0, pred, joint); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("ragged length: expected ErrInvalidInput, got %v", err)
	}
	if _, err := d.Decode(ctx, make([]float32, 4), 2, 3, pred, joint); !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("numFrames beyond data: expected ErrInvalidInput, got %v", err)
	}
	if _, err := d.Decode(ctx, make([]float32, 4), 2, 0, nil, joint); !errors.Is(err, inference.ErrNotReady) {
		t.Errorf("nil predictor: expected ErrNotReady, got %v", err)
	}
}

func TestDecode_AllBlankAdvancesEveryFrame(t *testing.T) {
	// A joint that always picks blank must yield no tokens and visit every
	// frame exactly once (no duration head: blank steps one frame).
	v := testVocab(t, "a", "b")
	d := newTestDecoder(t, v)
	const frames, dim = 7, 3

	pred := &mock.Predictor{}
	joint := &mock.Joint{Script: []inference.JointOutput{
		{TokenLogits: logits(v.Len()+1, v.BlankID())},
	}}

	tokens, err := d.Decode(context.Background(), make([]float32, frames*dim), dim, 0, pred, joint)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}
	if joint.Calls != frames {
		t.Errorf("joint called %d times; want %d", joint.Calls, frames)
	}
	if len(pred.Calls) != 1 {
		t.Errorf("predictor called %d times; want 1 (start sentinel only)", len(pred.Calls))
	}
	if pred.Calls[0] != v.BlankID() {
		t.Errorf("initial prediction token = %d; want blank %d", pred.Calls[0], v.BlankID())
	}
}

func TestDecode_TerminationBoundUnderTokenFlood(t *testing.T) {
	// A joint that always emits a token never advances time on its own; the
	// per-frame symbol cap must force progress, bounding joint calls and
	// output length by frames × maxSymbols.
	v := testVocab(t, "a", "b")
	const frames, dim, maxSym = 3, 2, 4
	d := newTestDecoder(t, v, WithMaxSymbolsPerFrame(maxSym))

	pred := &mock.Predictor{}
	joint := &mock.Joint{Script: []inference.JointOutput{
		{TokenLogits: logits(v.Len()+1, 1)},
	}}

	tokens, err := d.Decode(context.Background(), make([]float32, frames*dim), dim, 0, pred, joint)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if want := frames * maxSym; len(tokens) != want {
		t.Errorf("emitted %d tokens; want %d", len(tokens), want)
	}
	if joint.Calls > frames*maxSym {
		t.Errorf("joint called %d times; bound is %d", joint.Calls, frames*maxSym)
	}
	// One initial prediction plus one per emitted token.
	if want := 1 + frames*maxSym; len(pred.Calls) != want {
		t.Errorf("predictor called %d times; want %d", len(pred.Calls), want)
	}
}

func TestDecode_DurationSkipsFrames(t *testing.T) {
	// TDT path: the first frame emits token 1 with duration 2, everything
	// afterwards is blank with duration 1. Frames 0,2,3,4,5 are visited.
	v := testVocab(t, "x", "y")
	d := newTestDecoder(t, v, WithDurations([]int{0, 1, 2}))
	const frames, dim = 6, 1

	encoded := make([]float32, frames*dim)
	for i := 1; i < frames; i++ {
		encoded[i] = 9 // non-zero marks "blank" frames for the scripted joint
	}

	joint := &mock.Joint{JointFunc: func(encFrame, pred []float32) (inference.JointOutput, error) {
		if encFrame[0] == 0 {
			return inference.JointOutput{
				TokenLogits:    logits(v.Len()+1, 1),
				DurationLogits: logits(3, 2), // advance 2
			}, nil
		}
		return inference.JointOutput{
			TokenLogits:    logits(v.Len()+1, v.BlankID()),
			DurationLogits: logits(3, 1), // advance 1
		}, nil
	}}

	tokens, err := d.Decode(context.Background(), encoded, dim, 0, &mock.Predictor{}, joint)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != 1 {
		t.Errorf("tokens = %v; want [1]", tokens)
	}
	if joint.Calls != 5 {
		t.Errorf("joint called %d times; want 5 (frames 0,2,3,4,5)", joint.Calls)
	}
}

func TestDecode_BlankZeroDurationStillAdvances(t *testing.T) {
	v := testVocab(t, "x")
	d := newTestDecoder(t, v, WithDurations([]int{0, 1}))
	const frames = 4

	joint := &mock.Joint{Script: []inference.JointOutput{{
		TokenLogits:    logits(v.Len()+1, v.BlankID()),
		DurationLogits: logits(2, 0), // degenerate duration 0
	}}}

	tokens, err := d.Decode(context.Background(), make([]float32, frames), 1, 0, &mock.Predictor{}, joint)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}
	if joint.Calls != frames {
		t.Errorf("joint called %d times; want %d (blank must advance at least one frame)", joint.Calls, frames)
	}
}

func TestDecode_NumFramesLimitsDecoding(t *testing.T) {
	v := testVocab(t, "a")
	d := newTestDecoder(t, v)
	joint := &mock.Joint{Script: []inference.JointOutput{
		{TokenLogits: logits(v.Len()+1, v.BlankID())},
	}}
	_, err := d.Decode(context.Background(), make([]float32, 10), 1, 4, &mock.Predictor{}, joint)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if joint.Calls != 4 {
		t.Errorf("joint called %d times; want 4", joint.Calls)
	}
}

func TestDecode_DeterministicAndIsolatedAcrossSegments(t *testing.T) {
	// Decoding the same segment twice with the same scripted models must give
	// identical results: all per-segment state is fresh on every call.
	v := testVocab(t, "a", "b", "c")
	d := newTestDecoder(t, v)
	const frames, dim = 5, 2

	encoded := make([]float32, frames*dim)
	for i := range encoded {
		encoded[i] = float32(i % 3)
	}
	jointFn := func(encFrame, pred []float32) (inference.JointOutput, error) {
		// Emit token 2 on frames whose first value is 0, else blank.
		if encFrame[0] == 0 {
			return inference.JointOutput{TokenLogits: logits(v.Len()+1, 2)}, nil
		}
		return inference.JointOutput{TokenLogits: logits(v.Len()+1, v.BlankID())}, nil
	}

	decode := func() []int {
		tokens, err := d.Decode(context.Background(), encoded, dim, 0,
			&mock.Predictor{}, &mock.Joint{JointFunc: jointFn})
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		return tokens
	}

	first := decode()
	second := decode()
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("runs differ at %d: %v vs %v", i, first, second)
		}
	}
}

func TestDecode_ModelFailureDiscardsPartialOutput(t *testing.T) {
	v := testVocab(t, "a")
	d := newTestDecoder(t, v)

	joint := &mock.Joint{Err: inference.Errorf("joint", "backend fault")}
	tokens, err := d.Decode(context.Background(), make([]float32, 3), 1, 0, &mock.Predictor{}, joint)
	if err == nil {
		t.Fatal("expected error from failing joint")
	}
	var me *inference.ModelError
	if !errors.As(err, &me) {
		t.Errorf("expected *inference.ModelError, got %v", err)
	}
	if tokens != nil {
		t.Errorf("partial output must be discarded, got %v", tokens)
	}
}

func TestDecode_MalformedLogitShapes(t *testing.T) {
	v := testVocab(t, "a", "b")
	d := newTestDecoder(t, v, WithDurations([]int{0, 1}))

	t.Run("token logits too short for blank", func(t *testing.T) {
		joint := &mock.Joint{Script: []inference.JointOutput{
			{TokenLogits: logits(2, 0)}, // blank id is 2, needs 3 entries
		}}
		_, err := d.Decode(context.Background(), make([]float32, 2), 1, 0, &mock.Predictor{}, joint)
		var me *inference.ModelError
		if !errors.As(err, &me) {
			t.Errorf("expected *inference.ModelError, got %v", err)
		}
	})

	t.Run("duration logits mismatch table", func(t *testing.T) {
		joint := &mock.Joint{Script: []inference.JointOutput{{
			TokenLogits:    logits(v.Len()+1, v.BlankID()),
			DurationLogits: logits(5, 0), // table has 2 classes
		}}}
		_, err := d.Decode(context.Background(), make([]float32, 2), 1, 0, &mock.Predictor{}, joint)
		var me *inference.ModelError
		if !errors.As(err, &me) {
			t.Errorf("expected *inference.ModelError, got %v", err)
		}
	})
}

func TestDecode_Cancellation(t *testing.T) {
	v := testVocab(t, "a")
	d := newTestDecoder(t, v)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	joint := &mock.Joint{Script: []inference.JointOutput{
		{TokenLogits: logits(v.Len()+1, v.BlankID())},
	}}
	_, err := d.Decode(ctx, make([]float32, 100), 1, 0, &mock.Predictor{}, joint)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeBeam_Unsupported(t *testing.T) {
	v := testVocab(t, "a")
	d := newTestDecoder(t, v)
	_, err := d.DecodeBeam(context.Background(), make([]float32, 4), 1, 4, &mock.Predictor{}, &mock.Joint{})
	if !errors.Is(err, ErrBeamUnsupported) {
		t.Errorf("expected ErrBeamUnsupported, got %v", err)
	}
}
