// Package asr orchestrates the transcription pipeline: voice-activity
// chunking of long recordings, per-segment mel extraction, acoustic encoding,
// greedy transducer decoding, and detokenization.
//
// The engine owns no model internals — all networks are opaque handles behind
// the interfaces in [github.com/lorikeet-ml/lorikeet/pkg/inference]. Each
// segment is decoded with fresh decoder state and exclusive use of one model
// handle, so independent segments can run concurrently up to the size of the
// handle pool.
package asr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/lorikeet-ml/lorikeet/internal/config"
	"github.com/lorikeet-ml/lorikeet/internal/observe"
	"github.com/lorikeet-ml/lorikeet/pkg/audio"
	"github.com/lorikeet-ml/lorikeet/pkg/inference"
	"github.com/lorikeet-ml/lorikeet/pkg/mel"
	"github.com/lorikeet-ml/lorikeet/pkg/transducer"
	"github.com/lorikeet-ml/lorikeet/pkg/vad"
)

// SegmentResult is one decoded speech segment.
type SegmentResult struct {
	// Start and End are the segment bounds in seconds from recording start.
	Start float64
	End   float64

	// Tokens is the decoded token-id sequence.
	Tokens []int

	// Text is the detokenized transcript of this segment.
	Text string
}

// Result is a full transcription.
type Result struct {
	// Text is the concatenated transcript of all segments.
	Text string

	// Segments lists the decoded segments in time order. Segments skipped
	// due to decode failure (see config.EngineConfig.SkipFailedSegments) are
	// absent.
	Segments []SegmentResult
}

// Engine runs the transcription pipeline. Construct with [New]; safe for
// concurrent Transcribe calls — parallelism is bounded by the model-handle
// pool.
type Engine struct {
	cfg       *config.Config
	extractor *mel.Extractor
	decoder   *transducer.Decoder
	vocab     transducer.Vocabulary
	vadModel  inference.VADModel

	// pool hands out exclusive decode lanes; capacity is the number of
	// independent handle sets supplied at construction.
	pool     chan *lane
	poolSize int

	metrics *observe.Metrics
}

// lane is one unit of segment-decode parallelism: a model handle set plus a
// private feature extractor, since extractors reuse scratch buffers and must
// not be shared across goroutines.
type lane struct {
	models    inference.ModelSet
	extractor *mel.Extractor
}

// Option configures an Engine.
type Option func(*Engine)

// WithVADModel supplies the voice-activity model used to chunk long
// recordings. Without one, every recording is decoded as a single segment.
func WithVADModel(m inference.VADModel) Option {
	return func(e *Engine) { e.vadModel = m }
}

// WithMetrics overrides the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine. Each element of models must be a complete set of
// independent handles (encoder, predictor, joint); supplying n sets allows n
// segments to decode in parallel. An engine constructed with no models is
// valid but not ready: Transcribe fails with [inference.ErrNotReady].
func New(cfg *config.Config, vocab transducer.Vocabulary, models []inference.ModelSet, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}

	extractor, err := mel.New(
		mel.WithSampleRate(cfg.Features.SampleRate),
		mel.WithFFTSize(cfg.Features.FFTSize),
		mel.WithHopLength(cfg.Features.HopLength),
		mel.WithMelBins(cfg.Features.MelBins),
	)
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	decoder, err := transducer.NewDecoder(vocab,
		transducer.WithMaxSymbolsPerFrame(cfg.Decoder.MaxSymbolsPerFrame),
		transducer.WithDurations(cfg.Decoder.Durations),
	)
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		extractor: extractor,
		decoder:   decoder,
		vocab:     vocab,
		pool:      make(chan *lane, len(models)),
		poolSize:  len(models),
	}
	for i, ms := range models {
		if !ms.Complete() {
			return nil, fmt.Errorf("asr: model set %d is incomplete: %w", i, inference.ErrInvalidInput)
		}
		ext := extractor
		if i > 0 {
			// Each lane needs its own extractor; Compute reuses scratch
			// buffers.
			if ext, err = mel.New(
				mel.WithSampleRate(cfg.Features.SampleRate),
				mel.WithFFTSize(cfg.Features.FFTSize),
				mel.WithHopLength(cfg.Features.HopLength),
				mel.WithMelBins(cfg.Features.MelBins),
			); err != nil {
				return nil, fmt.Errorf("asr: %w", err)
			}
		}
		e.pool <- &lane{models: ms, extractor: ext}
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e, nil
}

// Ready reports whether the engine has at least one complete model set and
// can transcribe.
func (e *Engine) Ready() bool { return e.poolSize > 0 }

// Transcribe converts a mono waveform into text. Audio at a sample rate other
// than the configured model rate is resampled first. Long recordings are
// chunked at speech boundaries when a VAD model is configured; each segment
// is decoded with fresh state, so a failed segment never corrupts its
// neighbours. Empty input yields an empty Result and no error.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (Result, error) {
	if !e.Ready() {
		return Result{}, fmt.Errorf("asr: %w", inference.ErrNotReady)
	}
	if sampleRate <= 0 {
		return Result{}, fmt.Errorf("asr: sample rate %d: %w", sampleRate, inference.ErrInvalidInput)
	}
	if len(samples) == 0 {
		return Result{}, nil
	}

	ctx, span := observe.StartSpan(ctx, "asr.transcribe")
	defer span.End()
	e.metrics.InFlightTranscriptions.Add(ctx, 1)
	defer e.metrics.InFlightTranscriptions.Add(ctx, -1)
	start := time.Now()
	defer func() {
		e.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	}()

	rate := e.extractor.SampleRate()
	if sampleRate != rate {
		resampled, err := audio.Resample(samples, sampleRate, rate)
		if err != nil {
			return Result{}, fmt.Errorf("asr: %w", err)
		}
		samples = resampled
	}

	segments, err := e.chunk(ctx, samples)
	if err != nil {
		return Result{}, err
	}
	if len(segments) == 0 {
		return Result{}, nil
	}

	results := make([]*SegmentResult, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.poolSize)
	for i, seg := range segments {
		g.Go(func() error {
			var ln *lane
			select {
			case ln = <-e.pool:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { e.pool <- ln }()

			res, err := e.decodeSegment(gctx, samples, seg, ln)
			if err != nil {
				e.metrics.SegmentsDecoded.Add(gctx, 1, metric.WithAttributes(attribute.String("status", "error")))
				if e.cfg.Engine.SkipFailedSegments {
					observe.Logger(gctx).Warn("skipping failed segment",
						"start", seg.Start, "end", seg.End, "err", err)
					return nil
				}
				return err
			}
			e.metrics.SegmentsDecoded.Add(gctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
			e.metrics.TokensEmitted.Add(gctx, int64(len(res.Tokens)))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var out Result
	for _, r := range results {
		if r == nil {
			continue
		}
		out.Segments = append(out.Segments, *r)
		if r.Text != "" {
			if out.Text != "" {
				out.Text += " "
			}
			out.Text += r.Text
		}
	}
	return out, nil
}

// chunk splits the recording into speech segments. Short recordings and
// engines without a VAD model yield a single whole-recording segment.
func (e *Engine) chunk(ctx context.Context, samples []float32) ([]vad.Segment, error) {
	rate := e.extractor.SampleRate()
	duration := float64(len(samples)) / float64(rate)
	if e.vadModel == nil || duration <= e.cfg.Engine.ChunkThresholdSec {
		return []vad.Segment{{Start: 0, End: duration}}, nil
	}

	ctx, span := observe.StartSpan(ctx, "asr.vad")
	defer span.End()
	start := time.Now()
	defer func() {
		e.metrics.VADDuration.Record(ctx, time.Since(start).Seconds())
	}()

	seg, err := vad.NewSegmenter(e.vadModel,
		vad.WithFrameSize(e.cfg.VAD.FrameSize),
		vad.WithSampleRate(rate),
	)
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	segments, err := seg.DetectSpeechSegments(samples, vad.Options{
		Threshold:  e.cfg.VAD.Threshold,
		MinSilence: time.Duration(e.cfg.VAD.MinSilenceMs) * time.Millisecond,
		MinSpeech:  time.Duration(e.cfg.VAD.MinSpeechMs) * time.Millisecond,
	})
	if err != nil {
		e.recordInferenceError(ctx, err)
		return nil, fmt.Errorf("asr: segment detection: %w", err)
	}
	observe.Logger(ctx).Debug("speech segments detected",
		"count", len(segments), "audio_seconds", duration)
	return segments, nil
}

// decodeSegment runs mel extraction, encoding, and greedy decoding for one
// speech segment using the exclusively held lane.
func (e *Engine) decodeSegment(ctx context.Context, samples []float32, seg vad.Segment, ln *lane) (*SegmentResult, error) {
	ctx, span := observe.StartSpan(ctx, "asr.segment")
	defer span.End()

	rate := e.extractor.SampleRate()
	lo := int(seg.Start * float64(rate))
	hi := int(seg.End * float64(rate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(samples) {
		hi = len(samples)
	}
	if lo >= hi {
		return &SegmentResult{Start: seg.Start, End: seg.End}, nil
	}

	featStart := time.Now()
	spec, err := ln.extractor.Compute(samples[lo:hi], rate)
	e.metrics.FeatureDuration.Record(ctx, time.Since(featStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("asr: features for segment [%g, %g]: %w", seg.Start, seg.End, err)
	}
	if spec.Frames == 0 {
		return &SegmentResult{Start: seg.Start, End: seg.End}, nil
	}

	encStart := time.Now()
	encoded, encFrames, err := ln.models.Encoder.Encode(ctx, spec.Data, spec.Frames)
	e.metrics.EncodeDuration.Record(ctx, time.Since(encStart).Seconds())
	if err != nil {
		e.recordInferenceError(ctx, err)
		return nil, fmt.Errorf("asr: encode segment [%g, %g]: %w", seg.Start, seg.End, err)
	}
	if encFrames == 0 {
		return &SegmentResult{Start: seg.Start, End: seg.End}, nil
	}
	if encFrames < 0 || len(encoded)%encFrames != 0 {
		err := inference.Errorf("encoder", "output length %d does not divide into %d frames", len(encoded), encFrames)
		e.recordInferenceError(ctx, err)
		return nil, fmt.Errorf("asr: encode segment [%g, %g]: %w", seg.Start, seg.End, err)
	}
	hiddenDim := len(encoded) / encFrames

	decStart := time.Now()
	tokens, err := e.decoder.Decode(ctx, encoded, hiddenDim, 0, ln.models.Predictor, ln.models.Joint)
	e.metrics.DecodeDuration.Record(ctx, time.Since(decStart).Seconds())
	if err != nil {
		e.recordInferenceError(ctx, err)
		return nil, fmt.Errorf("asr: decode segment [%g, %g]: %w", seg.Start, seg.End, err)
	}

	return &SegmentResult{
		Start:  seg.Start,
		End:    seg.End,
		Tokens: tokens,
		Text:   e.vocab.Detokenize(tokens),
	}, nil
}

// recordInferenceError bumps the inference-error counter when err carries a
// *inference.ModelError.
func (e *Engine) recordInferenceError(ctx context.Context, err error) {
	var me *inference.ModelError
	if errors.As(err, &me) {
		e.metrics.InferenceErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("model", me.Model)))
	}
}
