package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(InstrumentationScope)
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		return otel.Tracer(InstrumentationScope)
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceControllerFunction starts a new span for a request controller operation.
func TraceControllerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "controller", functionName, attributes...)
}

// TraceBackendFunction starts a new span for a call to the translation backend.
func TraceBackendFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "backend", functionName, attributes...)
}

// TraceCacheFunction starts a new span for a translation cache operation.
func TraceCacheFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "cache", functionName, attributes...)
}

// TraceWorkerFunction starts a new span for a background worker run.
func TraceWorkerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "worker", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceCLIFunction starts a new span for a CLI command.
func TraceCLIFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "cli", functionName, attributes...)
}

// AttributeMode returns a tracing attribute for the input mode.
func AttributeMode(mode string) attribute.KeyValue {
	return attribute.String("hub.mode", mode)
}

// AttributeSourceLanguage returns a tracing attribute for the source language.
func AttributeSourceLanguage(code string) attribute.KeyValue {
	return attribute.String("hub.source_language", code)
}

// AttributeTargetLanguage returns a tracing attribute for the target language.
func AttributeTargetLanguage(code string) attribute.KeyValue {
	return attribute.String("hub.target_language", code)
}

// AttributeGeneration returns a tracing attribute for a request generation token.
func AttributeGeneration(gen uint64) attribute.KeyValue {
	return attribute.Int64("hub.generation", int64(gen))
}

// AttributeTransport returns a tracing attribute for the backend transport.
func AttributeTransport(transport string) attribute.KeyValue {
	return attribute.String("backend.transport", transport)
}

// AttributePayloadBytes returns a tracing attribute for an upload size.
func AttributePayloadBytes(n int64) attribute.KeyValue {
	return attribute.Int64("hub.payload_bytes", n)
}

// AttributeTextLength returns a tracing attribute for the length of submitted text.
func AttributeTextLength(n int) attribute.KeyValue {
	return attribute.Int("hub.text_length", n)
}

// AttributeSessionID returns a tracing attribute for a websocket session.
func AttributeSessionID(id string) attribute.KeyValue {
	return attribute.String("hub.session_id", id)
}

// AttributeErrorKind returns a tracing attribute for a request failure kind.
func AttributeErrorKind(kind string) attribute.KeyValue {
	return attribute.String("hub.error_kind", kind)
}
