package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/labflow/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(originalProvider)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "splitter", "split",
		telemetry.WithAttribute(telemetry.AttrKeyWorkOrderID, "wo-1"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "splitter.split", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "wo-1", attrs["work_order_id"])
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "sets.create")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.SetAttribute(span, telemetry.AttrKeyJobsCreated, 3)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1) // exception
	require.Len(t, spans[0].Attributes(), 1)
	assert.Equal(t, int64(3), spans[0].Attributes()[0].Value.AsInt64())
}

func TestSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "splitter.split",
		telemetry.WithAttribute("run", uuidLike("r-1")),
	)
	telemetry.SetOK(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "r-1", spans[0].Attributes()[0].Value.AsString())
}

// uuidLike exercises the fmt.Stringer attribute path
type uuidLike string

func (u uuidLike) String() string { return string(u) }

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.SetAttribute(nil, "k", "v")
	})
}

func TestSetup_Disabled(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())

	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviders_NilIsDisabled(t *testing.T) {
	var p *telemetry.Providers
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}
