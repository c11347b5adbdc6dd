package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultServiceName = "mindsage-analyzer"

var tracer oteltrace.Tracer = otel.Tracer(defaultServiceName)

// Config holds tracing configuration
type Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Initialize sets up OTLP tracing. The returned shutdown func flushes
// pending spans and is safe to call when tracing is disabled.
func Initialize(cfg Config, logger *zap.Logger) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	tracer = otel.Tracer(cfg.ServiceName)
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return noop, nil
	}
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4317"
	}

	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", "1.0.0"),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer(cfg.ServiceName)

	logger.Info("Tracing initialized", zap.String("endpoint", cfg.OTLPEndpoint))
	return tp.Shutdown, nil
}

// W3CTraceparent returns the traceparent header value for the span in ctx,
// or "" when there is no valid span.
func W3CTraceparent(ctx context.Context) string {
	sc := oteltrace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return fmt.Sprintf("00-%s-%s-%02x", sc.TraceID().String(), sc.SpanID().String(), sc.TraceFlags())
}

// InjectTraceparent adds W3C traceparent header to HTTP request
func InjectTraceparent(ctx context.Context, req *http.Request) {
	if tp := W3CTraceparent(ctx); tp != "" {
		req.Header.Set("traceparent", tp)
	}
}

// StartSpan creates a new span with the given name
func StartSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, name)
}

// StartInferenceSpan creates a span for one remote inference call.
func StartInferenceSpan(ctx context.Context, endpoint, url string) (context.Context, oteltrace.Span) {
	ctx, span := tracer.Start(ctx, "inference "+endpoint)
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodPost),
		attribute.String("url.full", url),
		attribute.String("inference.endpoint", endpoint),
	)
	return ctx, span
}
