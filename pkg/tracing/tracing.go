package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds tracing configuration
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Environment string `json:"environment" yaml:"environment"`
	Version     string `json:"version" yaml:"version"`

	// Exporter configuration
	ExporterType string `json:"exporter_type" yaml:"exporter_type"` // "otlp", "stdout", "none"
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`

	// Sampling configuration
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

// DefaultConfig returns default tracing configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:      false,
		ServiceName:  "chainreact",
		Environment:  "development",
		Version:      "dev",
		ExporterType: "stdout",
		OTLPEndpoint: "localhost:4318",
		SampleRatio:  1.0,
	}
}

// Provider holds the tracing provider instance
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	config         *Config
}

var globalProvider *Provider

// Initialize sets up the global tracing provider
func Initialize(config *Config) error {
	if !config.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.Version),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch config.ExporterType {
	case "otlp":
		exporter, err = otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create otlp exporter: %w", err)
		}
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	case "none":
		// Spans are collected but never exported
		exporter = &noopExporter{}
	default:
		return fmt.Errorf("unsupported exporter type: %s", config.ExporterType)
	}

	var sampler sdktrace.Sampler
	if config.SampleRatio <= 0 {
		sampler = sdktrace.NeverSample()
	} else if config.SampleRatio >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(config.SampleRatio)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	globalProvider = &Provider{
		tracerProvider: tp,
		tracer:         tp.Tracer(config.ServiceName),
		config:         config,
	}

	return nil
}

// Shutdown gracefully shuts down the tracing provider
func Shutdown(ctx context.Context) error {
	if globalProvider != nil && globalProvider.tracerProvider != nil {
		return globalProvider.tracerProvider.Shutdown(ctx)
	}
	return nil
}

// StartSpan creates a new span with the given name and options
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if globalProvider == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return globalProvider.tracer.Start(ctx, spanName, opts...)
}

// TraceGeneration creates a span covering a full workflow generation
func TraceGeneration(ctx context.Context, generationID, model string) (context.Context, trace.Span) {
	return StartSpan(ctx, "generation.run",
		trace.WithAttributes(
			GenerationIDKey.String(generationID),
			ModelKey.String(model),
			ComponentKey.String("generation-pipeline"),
		),
	)
}

// TraceStage creates a span for one generation pipeline stage
func TraceStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return StartSpan(ctx, "generation."+stage,
		trace.WithAttributes(
			StageKey.String(stage),
			ComponentKey.String("generation-pipeline"),
		),
	)
}

// TraceLLMRequest creates a span for an LLM completion request
func TraceLLMRequest(ctx context.Context, model string) (context.Context, trace.Span) {
	return StartSpan(ctx, "llm.complete",
		trace.WithAttributes(
			ModelKey.String(model),
			ComponentKey.String("llm-client"),
		),
	)
}

// TraceAPIRequest creates a span for API requests
func TraceAPIRequest(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return StartSpan(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
			ComponentKey.String("api"),
		),
	)
}

// TraceDBQuery creates a span for database queries
func TraceDBQuery(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, "db.query",
		trace.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.table", table),
			ComponentKey.String("database"),
		),
	)
}

// AddSpanError adds error information to the current span
func AddSpanError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// GetTraceID returns the trace ID from the current span
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// noopExporter is a no-op span exporter
type noopExporter struct{}

func (e *noopExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (e *noopExporter) Shutdown(ctx context.Context) error {
	return nil
}

// Common attribute keys for consistency
var (
	GenerationIDKey = attribute.Key("generation.id")
	WorkflowIDKey   = attribute.Key("workflow.id")
	NodeTypeKey     = attribute.Key("node.type")
	ModelKey        = attribute.Key("llm.model")
	StageKey        = attribute.Key("generation.stage")
	ComponentKey    = attribute.Key("component")
)

// ErrorAttributes builds span attributes describing an error
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String("error.type", fmt.Sprintf("%T", err)),
		attribute.String("error.message", err.Error()),
	}
}
