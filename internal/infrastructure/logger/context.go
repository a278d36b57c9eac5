package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for the request (invocation) ID
	RequestIDKey contextKey = "request_id"
	// WorkOrderIDKey is the context key for the work order being processed
	WorkOrderIDKey contextKey = "work_order_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, RequestIDKey, requestID)
}

// WithWorkOrderID adds the work order ID to context and returns enriched logger
func WithWorkOrderID(ctx context.Context, logger *zap.Logger, workOrderID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, WorkOrderIDKey, workOrderID)
}

func withField(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetWorkOrderID retrieves the work order ID from context
func GetWorkOrderID(ctx context.Context) string {
	id, _ := ctx.Value(WorkOrderIDKey).(string)
	return id
}

// traceFields returns trace_id and span_id for the active span, if any
func traceFields(ctx context.Context) []zap.Field {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	}
}

// WithTraceContext adds trace_id and span_id to the logger from the context's span.
// If no valid span exists, returns the original logger unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := traceFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// L returns the context's logger with the active span's trace_id and span_id.
// request_id and work_order_id are already on it when the context was built
// with WithRequestID or WithWorkOrderID.
//
//	logger.L(ctx).Info("split started", zap.Int("partitions", n))
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}

// Fields returns the request-scoped fields found in ctx, for loggers that were
// not derived from the context's logger.
func Fields(ctx context.Context) []zap.Field {
	fields := traceFields(ctx)
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String(string(RequestIDKey), id))
	}
	if id := GetWorkOrderID(ctx); id != "" {
		fields = append(fields, zap.String(string(WorkOrderIDKey), id))
	}
	return fields
}
