package observe

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Telemetry owns the OTel SDK providers for a process embedding the pipeline.
type Telemetry struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// SetupOption configures [Setup].
type SetupOption func(*setupConfig)

type setupConfig struct {
	serviceName    string
	serviceVersion string
	traceExporter  sdktrace.SpanExporter
}

// WithServiceName sets the service name reported in telemetry.
// Default "lorikeet".
func WithServiceName(name string) SetupOption {
	return func(c *setupConfig) { c.serviceName = name }
}

// WithServiceVersion sets the service version reported in telemetry.
func WithServiceVersion(version string) SetupOption {
	return func(c *setupConfig) { c.serviceVersion = version }
}

// WithTraceExporter sets the span exporter, typically OTLP in production.
// Without one, spans are recorded but never leave the process.
func WithTraceExporter(exp sdktrace.SpanExporter) SetupOption {
	return func(c *setupConfig) { c.traceExporter = exp }
}

// Setup installs the global OTel providers: metrics via a Prometheus exporter
// (scrapable from whatever registry/handler the embedding process serves) and
// traces via the configured exporter. Call [Telemetry.Shutdown] in a defer
// from main. Pipeline instruments created before Setup bind to the no-op
// globals, so call it before [DefaultMetrics].
func Setup(opts ...SetupOption) (*Telemetry, error) {
	cfg := setupConfig{serviceName: "lorikeet"}
	for _, o := range opts {
		o(&cfg)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.serviceName),
			semconv.ServiceVersion(cfg.serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}

	tel := &Telemetry{
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(promExp),
		),
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.traceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.traceExporter))
	}
	tel.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)

	otel.SetMeterProvider(tel.meterProvider)
	otel.SetTracerProvider(tel.tracerProvider)
	return tel, nil
}

// Shutdown flushes and closes both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.meterProvider.Shutdown(ctx),
		t.tracerProvider.Shutdown(ctx),
	)
}
