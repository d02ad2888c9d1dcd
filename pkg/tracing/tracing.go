// Package tracing sets up the OpenTelemetry SDK with an OTLP/HTTP exporter.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint is host:port (plain HTTP) or a full collector URL.
	OTLPEndpoint string
	// SampleRate is the fraction of new traces kept, clamped to [0, 1].
	SampleRate float64
	Enabled    bool
	// Attributes describe the deployment, e.g. the storage backend, and are
	// attached to every span through the resource.
	Attributes []attribute.KeyValue
}

// DefaultConfig is disabled and samples everything once enabled.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4318",
		SampleRate:     1.0,
	}
}

// InitTracer installs a global tracer provider and W3C propagators. The
// returned function flushes pending spans and must be called on shutdown.
// When cfg.Enabled is false nothing is installed and shutdown is a no-op.
func InitTracer(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg.OTLPEndpoint)...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := make([]attribute.KeyValue, 0, 3+len(cfg.Attributes))
	attrs = append(attrs,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)
	attrs = append(attrs, cfg.Attributes...)

	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithProcessRuntimeDescription(),
		resource.WithHost(),
	)
}

// exporterOptions accepts a bare host:port, exported over plain HTTP, or a
// URL whose scheme decides TLS.
func exporterOptions(endpoint string) []otlptracehttp.Option {
	if strings.Contains(endpoint, "://") {
		return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	}
	return []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	}
}

// sampler honors the caller's decision for propagated traces and samples
// root spans at rate.
func sampler(rate float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(rate)
	if rate >= 1 {
		root = sdktrace.AlwaysSample()
	} else if rate <= 0 {
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}

// Tracer returns a named tracer from the global provider. Tracers obtained
// before InitTracer start recording once it runs.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
