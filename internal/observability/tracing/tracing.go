package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Init configures an OTLP HTTP exporter when OTEL_EXPORTER_OTLP_ENDPOINT is
// set and returns a shutdown function. Without an endpoint tracing stays a
// no-op so development runs need no collector.
func Init(ctx context.Context, logger *slog.Logger, serviceName, environment string) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		logger.Info("tracing disabled: OTEL_EXPORTER_OTLP_ENDPOINT not set")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(samplerFromEnv()),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing initialized", slog.String("endpoint", endpoint))
	return tp.Shutdown, nil
}

// samplerFromEnv reads OTEL_TRACE_SAMPLE_RATIO; anything unparsable or out
// of range falls back to sampling everything.
func samplerFromEnv() trace.Sampler {
	raw := os.Getenv("OTEL_TRACE_SAMPLE_RATIO")
	if raw == "" {
		return trace.AlwaysSample()
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio >= 1 {
		return trace.AlwaysSample()
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}
