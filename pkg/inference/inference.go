// Package inference defines the narrow numeric boundary between the decoding
// core and the external neural networks it drives.
//
// The acoustic encoder, the prediction ("decoder") network, the joint network,
// and the VAD classifier are opaque collaborators: each is a pure function
// from tensors (plus recurrent state, where applicable) to tensors. This
// package specifies their Go shapes so the feature, segmentation, and decoding
// logic stays backend-agnostic and unit-testable with scripted stubs — the
// actual model runtimes (ONNX Runtime, CoreML bridges, remote inference
// servers) live behind these interfaces and are out of scope here.
//
// All calls are synchronous and return freshly allocated output slices; no
// implementation may retain or alias caller buffers. A single handle supports
// at most one in-flight call at a time — callers that decode segments
// concurrently must provide one handle per worker or serialize access.
package inference

import "context"

// Encoder maps a mel-feature matrix to a sequence of acoustic encodings.
type Encoder interface {
	// Encode consumes features flattened [frames, bins] in frame-major order
	// and returns encodings flattened [outFrames, dim] plus outFrames. The
	// output frame count is typically smaller than the input count (encoder
	// subsampling). Returns a *ModelError on execution failure.
	Encode(ctx context.Context, features []float32, frames int) (encoded []float32, outFrames int, err error)
}

// PredictorState is the opaque recurrent state of the prediction network.
// Values are owned by exactly one decoding session and never shared or
// carried across segments.
type PredictorState any

// Predictor is the transducer prediction network: an autoregressive model
// over previously emitted tokens.
type Predictor interface {
	// InitialState returns the network's defined start state, used together
	// with the start-of-sequence sentinel at the beginning of every segment.
	InitialState() PredictorState

	// Predict computes the prediction vector for prevToken given state. It
	// must not mutate state; the successor state is returned. Returns a
	// *ModelError on execution failure.
	Predict(ctx context.Context, prevToken int, state PredictorState) (pred []float32, next PredictorState, err error)
}

// JointOutput is one step of joint-network output.
type JointOutput struct {
	// TokenLogits is the unnormalized distribution over vocabulary ∪ {blank};
	// its length must equal vocabulary size + 1.
	TokenLogits []float32

	// DurationLogits is the parallel distribution over duration classes for
	// duration-aware (TDT) models. Nil or empty for classic RNN-T models.
	DurationLogits []float32
}

// Joint combines one encoder frame with one prediction vector.
type Joint interface {
	// Joint returns logits for the pairing of encFrame and pred. Returns a
	// *ModelError on execution failure.
	Joint(ctx context.Context, encFrame, pred []float32) (JointOutput, error)
}

// VADState holds the recurrent hidden and cell vectors of the VAD classifier.
// Both slices have the model's state size; the zero value of each element is
// the defined reset state.
type VADState struct {
	Hidden []float32
	Cell   []float32
}

// VADModel is a per-frame binary speech classifier with recurrent state.
type VADModel interface {
	// Forward scores one fixed-size audio frame, returning the speech
	// probability in [0, 1] and the successor state. Implementations must be
	// deterministic given (frame, state) and must not mutate state in place.
	// Returns a *ModelError on execution failure.
	Forward(frame []float32, state VADState) (prob float32, next VADState, err error)

	// StateSize returns the length of the hidden and cell vectors.
	StateSize() int
}

// ModelSet bundles the three transducer model handles needed to decode one
// segment. The handles in one set belong together (same checkpoint) and are
// used by at most one segment at a time.
type ModelSet struct {
	Encoder   Encoder
	Predictor Predictor
	Joint     Joint
}

// Complete reports whether every handle in the set is present.
func (m ModelSet) Complete() bool {
	return m.Encoder != nil && m.Predictor != nil && m.Joint != nil
}
