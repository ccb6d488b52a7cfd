// Package mock provides scripted test doubles for the inference interfaces.
//
// Each double either replays configured outputs or delegates to an injected
// function, and records the calls it received so tests can assert on call
// counts and arguments.
//
// Example:
//
//	joint := &mock.Joint{JointFunc: func(enc, pred []float32) (inference.JointOutput, error) {
//	    return inference.JointOutput{TokenLogits: blankOnly}, nil
//	}}
package mock

import (
	"context"
	"sync"

	"github.com/lorikeet-ml/lorikeet/pkg/inference"
)

// Encoder is a scripted implementation of [inference.Encoder].
type Encoder struct {
	mu sync.Mutex

	// Out and OutFrames are returned by Encode when EncodeFunc is nil.
	Out       []float32
	OutFrames int

	// EncodeFunc, when set, computes the result instead of Out/OutFrames.
	EncodeFunc func(features []float32, frames int) ([]float32, int, error)

	// Err, if non-nil, is returned from Encode.
	Err error

	// Calls counts Encode invocations.
	Calls int
}

var _ inference.Encoder = (*Encoder)(nil)

func (e *Encoder) Encode(_ context.Context, features []float32, frames int) ([]float32, int, error) {
	e.mu.Lock()
	e.Calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, 0, e.Err
	}
	if e.EncodeFunc != nil {
		return e.EncodeFunc(features, frames)
	}
	return e.Out, e.OutFrames, nil
}

// Predictor is a scripted implementation of [inference.Predictor]. By default
// the prediction vector is [float32(prevToken)] and the state is a step
// counter, which is enough for decoders that only thread values through.
type Predictor struct {
	mu sync.Mutex

	// PredictFunc, when set, computes the result.
	PredictFunc func(prevToken int, state inference.PredictorState) ([]float32, inference.PredictorState, error)

	// Err, if non-nil, is returned from Predict.
	Err error

	// Calls records the prevToken of every Predict invocation in order.
	Calls []int
}

var _ inference.Predictor = (*Predictor)(nil)

// InitialState returns the int 0.
func (p *Predictor) InitialState() inference.PredictorState { return 0 }

func (p *Predictor) Predict(_ context.Context, prevToken int, state inference.PredictorState) ([]float32, inference.PredictorState, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, prevToken)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, nil, p.Err
	}
	if p.PredictFunc != nil {
		return p.PredictFunc(prevToken, state)
	}
	step, _ := state.(int)
	return []float32{float32(prevToken)}, step + 1, nil
}

// Joint is a scripted implementation of [inference.Joint].
type Joint struct {
	mu sync.Mutex

	// Script is a sequence of outputs replayed in order. When exhausted the
	// last element repeats. Ignored when JointFunc is set.
	Script []inference.JointOutput

	// JointFunc, when set, computes the result.
	JointFunc func(encFrame, pred []float32) (inference.JointOutput, error)

	// Err, if non-nil, is returned from Joint.
	Err error

	// Calls counts Joint invocations.
	Calls int
}

var _ inference.Joint = (*Joint)(nil)

func (j *Joint) Joint(_ context.Context, encFrame, pred []float32) (inference.JointOutput, error) {
	j.mu.Lock()
	n := j.Calls
	j.Calls++
	j.mu.Unlock()
	if j.Err != nil {
		return inference.JointOutput{}, j.Err
	}
	if j.JointFunc != nil {
		return j.JointFunc(encFrame, pred)
	}
	if len(j.Script) == 0 {
		return inference.JointOutput{}, nil
	}
	if n >= len(j.Script) {
		n = len(j.Script) - 1
	}
	return j.Script[n], nil
}

// VADModel is a scripted implementation of [inference.VADModel]. By default it
// replays Probs in call order; set ForwardFunc for state-dependent behavior.
type VADModel struct {
	mu sync.Mutex

	// Probs is the probability returned per call, in order. When exhausted,
	// 0 is returned.
	Probs []float32

	// ForwardFunc, when set, computes the result.
	ForwardFunc func(frame []float32, state inference.VADState) (float32, inference.VADState, error)

	// Size is the reported state size. Defaults to 128.
	Size int

	// Err, if non-nil, is returned from Forward.
	Err error

	// Frames records a copy of every frame passed to Forward.
	Frames [][]float32
}

var _ inference.VADModel = (*VADModel)(nil)

func (m *VADModel) StateSize() int {
	if m.Size > 0 {
		return m.Size
	}
	return 128
}

func (m *VADModel) Forward(frame []float32, state inference.VADState) (float32, inference.VADState, error) {
	m.mu.Lock()
	n := len(m.Frames)
	m.Frames = append(m.Frames, append([]float32(nil), frame...))
	m.mu.Unlock()
	if m.Err != nil {
		return 0, inference.VADState{}, m.Err
	}
	if m.ForwardFunc != nil {
		return m.ForwardFunc(frame, state)
	}
	var p float32
	if n < len(m.Probs) {
		p = m.Probs[n]
	}
	return p, state, nil
}
