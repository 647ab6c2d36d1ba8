package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const DefaultServiceName = "medtriage"

type TracingConfig struct {
	ServiceName string
	// Exporter is "stdout", "otlp" or "none".
	Exporter     string
	OTLPEndpoint string
}

// InitTracing installs a global tracer provider and returns its shutdown func.
// With the "none" exporter the global no-op provider is left in place.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.Exporter == "" || cfg.Exporter == "none" {
		return noop, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracehttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return noop, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
	if err != nil {
		return noop, fmt.Errorf("failed to create %s exporter: %w", cfg.Exporter, err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", name))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
