// Package tracing installs the process-wide OpenTelemetry tracer provider:
// an OTLP/gRPC exporter batching spans to a collector. Any otel.Tracer(...)
// call elsewhere in the process (internal/pkg/middleware's per-request span)
// picks up whatever provider is registered here.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config is the OTLP exporter target, sourced from internal/config.
type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// Bootstrap installs a batching OTLP/gRPC tracer provider as the global
// tracer provider when cfg.Endpoint is set, and returns a shutdown func that
// flushes pending spans and closes the exporter. With no endpoint configured
// it installs nothing and returns a no-op shutdown, so tracing stays opt-in
// the same way REDIS_URL and NATS_URL are elsewhere in Bootstrap.
func Bootstrap(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("tracing: create otlp exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "csms"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
