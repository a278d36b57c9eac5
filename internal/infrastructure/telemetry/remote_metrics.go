package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RemoteMetrics records calls to the laboratory services.
// A nil *RemoteMetrics is valid and records nothing.
type RemoteMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRemoteMetrics creates the remote call instruments on meter.
func NewRemoteMetrics(meter metric.Meter) (*RemoteMetrics, error) {
	b, err := newInstruments("NewRemoteMetrics", meter)
	if err != nil {
		return nil, err
	}
	m := &RemoteMetrics{
		calls:    b.counter("labflow_remote_calls_total", "Total number of laboratory service calls", "{calls}"),
		duration: b.seconds("labflow_remote_call_duration_seconds", "Laboratory service call latency in seconds", RemoteDurationBuckets),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordCall records one request. status is the HTTP status, 0 for transport errors.
func (m *RemoteMetrics) RecordCall(ctx context.Context, service, operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	svc, op := AttrRemoteService.String(service), AttrRemoteOperation.String(operation)
	inc(ctx, m.calls, svc, op, AttrRemoteStatus.String(code))
	observe(ctx, m.duration, d, svc, op)
}
