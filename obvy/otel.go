package musicio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracing backends selected by MUSICIO_OTEL
const (
	TraceNone      = "none"
	TraceHoneycomb = "honeycomb"
	TraceOTLP      = "otlp"
)

// InitTracing configures the global tracer provider.
// The returned shutdown flushes spans and is never nil.
func InitTracing(ctx context.Context, backend string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch backend {
	case "", TraceNone, "ENOENT":
		slog.Debug("Tracing disabled")
		return noop, nil
	case TraceHoneycomb:
		shutdown, err := InitOTelHNY()
		if err != nil {
			return noop, err
		}
		return func(context.Context) error { shutdown(); return nil }, nil
	case TraceOTLP:
		tp, err := InitOTelGRF(ctx)
		if err != nil {
			return noop, err
		}
		return tp.Shutdown, nil
	default:
		return noop, fmt.Errorf("unknown tracing backend %q", backend)
	}
}

// InitOTelHNY uses the Honeycomb library, configured from HONEYCOMB_* / OTEL_* env
func InitOTelHNY() (func(), error) {
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to configure OpenTelemetry: %w", err)
	}
	slog.Info("Tracing to Honeycomb")
	return func() { otelShutdown() }, nil
}

// InitOTelGRF follows the Grafana setup: OTLP/HTTP with Baggage for propagation,
// the endpoint comes from OTEL_EXPORTER_OTLP_ENDPOINT
func InitOTelGRF(ctx context.Context) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	slog.Info("Tracing over OTLP")
	return tp, nil
}
