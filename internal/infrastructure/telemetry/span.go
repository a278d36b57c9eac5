package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of every span started here
const TracerName = "labflow-backend"

// Span attribute keys
const (
	AttrKeyWorkOrderID  = "work_order_id"
	AttrKeyJobsCreated  = "jobs_created"
	AttrKeyRemoteMethod = "remote.method"
	AttrKeyRemotePath   = "remote.path"
)

// SpanOption configures StartSpan
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

// WithAttribute sets a span attribute at start
func WithAttribute(key string, value any) SpanOption {
	return func(c *spanConfig) { c.attrs = append(c.attrs, toAttribute(key, value)) }
}

// WithSpanKind overrides the default internal kind
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(c *spanConfig) { c.kind = kind }
}

// StartSpan starts a span on the global tracer provider. The caller ends it.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	c := spanConfig{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&c)
	}
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(c.kind),
		trace.WithAttributes(c.attrs...),
	)
}

// StartServiceSpan starts a span named {service}.{method}
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttribute sets one attribute on span; a nil span is ignored
func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(toAttribute(key, value))
	}
}

// RecordError attaches err to span and marks the span failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks span successful
func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
