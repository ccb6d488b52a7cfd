// Package vad segments audio streams into speech regions using a per-frame
// voice-activity model.
//
// A [Segmenter] owns one stream's recurrent model state: it drives an
// [inference.VADModel] frame by frame, applies hysteresis so short silences
// inside an utterance do not split it, and drops blips too short to be
// speech. One Segmenter serves one audio stream at a time; create one per
// stream or call [Segmenter.Reset] between unrelated streams. Not safe for
// concurrent use.
package vad

import (
	"fmt"
	"time"

	"github.com/lorikeet-ml/lorikeet/pkg/inference"
)

const (
	// FrameSize is the default model input frame length in samples (36 ms at
	// 16 kHz).
	FrameSize = 576

	// SampleRate is the default audio sample rate in Hz.
	SampleRate = 16000
)

// Segment is a detected speech region with start and end times in seconds.
// Segments from one detection run are ordered and non-overlapping.
type Segment struct {
	Start float64
	End   float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// Options tunes one detection run. The zero value selects the defaults.
type Options struct {
	// Threshold is the speech probability at or above which a frame counts as
	// speech. Default 0.5.
	Threshold float64

	// MinSilence is the shortest non-speech run that ends a segment; shorter
	// runs are absorbed as internal silence. Default 300 ms.
	MinSilence time.Duration

	// MinSpeech is the shortest segment worth keeping; shorter provisional
	// segments are discarded. Default 250 ms.
	MinSpeech time.Duration
}

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = 0.5
	}
	if o.MinSilence == 0 {
		o.MinSilence = 300 * time.Millisecond
	}
	if o.MinSpeech == 0 {
		o.MinSpeech = 250 * time.Millisecond
	}
	return o
}

// Segmenter drives a VAD model over one audio stream.
type Segmenter struct {
	model      inference.VADModel
	frameSize  int
	sampleRate int
	state      inference.VADState
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithFrameSize overrides the model input frame length. Default [FrameSize].
func WithFrameSize(n int) SegmenterOption {
	return func(s *Segmenter) { s.frameSize = n }
}

// WithSampleRate overrides the assumed audio sample rate. Default [SampleRate].
func WithSampleRate(rate int) SegmenterOption {
	return func(s *Segmenter) { s.sampleRate = rate }
}

// NewSegmenter creates a Segmenter for model with freshly zeroed state.
func NewSegmenter(model inference.VADModel, opts ...SegmenterOption) (*Segmenter, error) {
	if model == nil {
		return nil, fmt.Errorf("vad: nil model: %w", inference.ErrInvalidInput)
	}
	s := &Segmenter{
		model:      model,
		frameSize:  FrameSize,
		sampleRate: SampleRate,
	}
	for _, o := range opts {
		o(s)
	}
	if s.frameSize <= 0 || s.sampleRate <= 0 {
		return nil, fmt.Errorf("vad: frame size %d, sample rate %d: must be positive: %w",
			s.frameSize, s.sampleRate, inference.ErrInvalidInput)
	}
	s.Reset()
	return s, nil
}

// Reset zeroes the recurrent hidden and cell state. Call before feeding a new
// independent audio stream; calling it twice in a row is equivalent to once.
func (s *Segmenter) Reset() {
	n := s.model.StateSize()
	s.state = inference.VADState{
		Hidden: make([]float32, n),
		Cell:   make([]float32, n),
	}
}

// ProcessFrame scores a single frame of exactly the configured frame size and
// advances the recurrent state. It behaves identically to the per-frame step
// inside [Segmenter.DetectSpeechSegments], so callers can use it directly for
// real-time probability queries.
func (s *Segmenter) ProcessFrame(frame []float32) (float32, error) {
	if len(frame) != s.frameSize {
		return 0, fmt.Errorf("vad: frame has %d samples, want %d: %w",
			len(frame), s.frameSize, inference.ErrInvalidInput)
	}
	prob, next, err := s.model.Forward(frame, s.state)
	if err != nil {
		return 0, fmt.Errorf("vad: %w", err)
	}
	s.state = next
	return prob, nil
}

// FrameDuration returns the duration of one frame in seconds.
func (s *Segmenter) FrameDuration() float64 {
	return float64(s.frameSize) / float64(s.sampleRate)
}

// framesFor converts a duration to a frame count, rounding up so that a run
// strictly shorter than d never reaches the count.
func (s *Segmenter) framesFor(d time.Duration) int {
	samples := d.Seconds() * float64(s.sampleRate)
	frames := int((samples + float64(s.frameSize) - 1) / float64(s.frameSize))
	if frames < 1 {
		frames = 1
	}
	return frames
}

// DetectSpeechSegments runs a single streaming pass over samples and returns
// the detected speech regions. The recurrent state is reset at the start, so
// each call is an independent detection run. The final partial frame is
// zero-padded. Empty input yields no segments and no error.
func (s *Segmenter) DetectSpeechSegments(samples []float32, opts Options) ([]Segment, error) {
	opts = opts.withDefaults()
	s.Reset()

	if len(samples) == 0 {
		return nil, nil
	}

	numFrames := (len(samples) + s.frameSize - 1) / s.frameSize
	minSilenceFrames := s.framesFor(opts.MinSilence)
	minSpeechFrames := s.framesFor(opts.MinSpeech)
	frameDur := s.FrameDuration()

	var (
		segments   []Segment
		inSpeech   bool
		segStart   int // first frame of the current provisional segment
		silenceRun int // consecutive non-speech frames inside the segment
	)

	frame := make([]float32, s.frameSize)
	emit := func(startFrame, endFrame int) {
		if endFrame-startFrame < minSpeechFrames {
			return
		}
		segments = append(segments, Segment{
			Start: float64(startFrame) * frameDur,
			End:   float64(endFrame) * frameDur,
		})
	}

	for i := 0; i < numFrames; i++ {
		lo := i * s.frameSize
		hi := lo + s.frameSize
		if hi <= len(samples) {
			copy(frame, samples[lo:hi])
		} else {
			n := copy(frame, samples[lo:])
			for j := n; j < s.frameSize; j++ {
				frame[j] = 0
			}
		}

		prob, err := s.ProcessFrame(frame)
		if err != nil {
			return nil, err
		}
		speech := float64(prob) >= opts.Threshold

		switch {
		case !inSpeech && speech:
			inSpeech = true
			segStart = i
			silenceRun = 0
		case inSpeech && speech:
			silenceRun = 0
		case inSpeech && !speech:
			silenceRun++
			if silenceRun >= minSilenceFrames {
				emit(segStart, i-silenceRun+1)
				inSpeech = false
				silenceRun = 0
			}
		}
	}

	// Trailing segment: trim whatever silence had accumulated at stream end.
	if inSpeech {
		emit(segStart, numFrames-silenceRun)
	}
	return segments, nil
}
