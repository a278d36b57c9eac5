package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")

	AttrRemoteService   = attribute.Key("remote.service")
	AttrRemoteOperation = attribute.Key("remote.operation")
	AttrRemoteStatus    = attribute.Key("remote.status")

	AttrSplitOutcome = attribute.Key("split.outcome")
)

// Histogram bucket boundaries, in seconds
var (
	DBDurationBuckets     = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	RemoteDurationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	SplitDurationBuckets  = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
)

// MetricsError is returned by the metrics constructors.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// instruments creates counters and histograms on one meter, keeping the
// first error so constructors check once at the end.
type instruments struct {
	meter metric.Meter
	err   error
}

func newInstruments(op string, meter metric.Meter) (*instruments, error) {
	if meter == nil {
		return nil, &MetricsError{Op: op, Err: "meter cannot be nil"}
	}
	return &instruments{meter: meter}, nil
}

func (b *instruments) counter(name, description, unit string) metric.Int64Counter {
	if b.err != nil {
		return nil
	}
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.err = fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return c
}

// seconds creates a histogram of durations recorded in seconds
func (b *instruments) seconds(name, description string, buckets []float64) metric.Float64Histogram {
	if b.err != nil {
		return nil
	}
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		b.err = fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return h
}

func inc(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func observe(ctx context.Context, h metric.Float64Histogram, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}
