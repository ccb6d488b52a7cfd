// Package observe provides observability primitives for the lorikeet
// transcription engine: OpenTelemetry metrics, tracing helpers, and the SDK
// provider setup that bridges metrics to Prometheus.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the instrumentation scope for all lorikeet metrics and spans.
const scopeName = "github.com/lorikeet-ml/lorikeet"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// FeatureDuration tracks mel-spectrogram extraction latency per segment.
	FeatureDuration metric.Float64Histogram

	// EncodeDuration tracks acoustic encoder inference latency per segment.
	EncodeDuration metric.Float64Histogram

	// DecodeDuration tracks greedy transducer decode latency per segment.
	DecodeDuration metric.Float64Histogram

	// VADDuration tracks speech-segment detection latency per recording.
	VADDuration metric.Float64Histogram

	// TranscribeDuration tracks end-to-end transcription latency per recording.
	TranscribeDuration metric.Float64Histogram

	// --- Counters ---

	// SegmentsDecoded counts decoded speech segments. Use with attribute:
	//   attribute.String("status", "ok"|"error"|"skipped")
	SegmentsDecoded metric.Int64Counter

	// TokensEmitted counts tokens produced by the decoder.
	TokensEmitted metric.Int64Counter

	// InferenceErrors counts external model failures. Use with attribute:
	//   attribute.String("model", "encoder"|"predictor"|"joint"|"vad")
	InferenceErrors metric.Int64Counter

	// --- Gauges ---

	// InFlightTranscriptions tracks currently running Transcribe calls.
	InFlightTranscriptions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// offline transcription stages, which run from milliseconds (one short
// segment) to minutes (a long recording).
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.FeatureDuration, err = m.Float64Histogram("lorikeet.feature.duration",
		metric.WithDescription("Latency of mel-spectrogram extraction per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EncodeDuration, err = m.Float64Histogram("lorikeet.encode.duration",
		metric.WithDescription("Latency of acoustic encoder inference per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DecodeDuration, err = m.Float64Histogram("lorikeet.decode.duration",
		metric.WithDescription("Latency of greedy transducer decoding per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VADDuration, err = m.Float64Histogram("lorikeet.vad.duration",
		metric.WithDescription("Latency of speech-segment detection per recording."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("lorikeet.transcribe.duration",
		metric.WithDescription("End-to-end transcription latency per recording."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SegmentsDecoded, err = m.Int64Counter("lorikeet.segments.decoded",
		metric.WithDescription("Total decoded speech segments by status."),
	); err != nil {
		return nil, err
	}
	if met.TokensEmitted, err = m.Int64Counter("lorikeet.tokens.emitted",
		metric.WithDescription("Total tokens emitted by the decoder."),
	); err != nil {
		return nil, err
	}
	if met.InferenceErrors, err = m.Int64Counter("lorikeet.inference.errors",
		metric.WithDescription("Total external model failures by model."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InFlightTranscriptions, err = m.Int64UpDownCounter("lorikeet.transcriptions.in_flight",
		metric.WithDescription("Number of currently running Transcribe calls."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
