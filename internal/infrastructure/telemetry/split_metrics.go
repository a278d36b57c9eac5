package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Split outcomes used as the split.outcome attribute.
const (
	SplitOutcomeSucceeded   = "succeeded"
	SplitOutcomeCompensated = "compensated"
	SplitOutcomeRefused     = "refused"
)

// SplitMetrics records work order split activity.
// A nil *SplitMetrics is valid and records nothing.
type SplitMetrics struct {
	runs                 metric.Int64Counter
	jobsCreated          metric.Int64Counter
	setsCompensated      metric.Int64Counter
	compensationFailures metric.Int64Counter
	duration             metric.Float64Histogram
}

// NewSplitMetrics creates the split instruments on meter.
func NewSplitMetrics(meter metric.Meter) (*SplitMetrics, error) {
	b, err := newInstruments("NewSplitMetrics", meter)
	if err != nil {
		return nil, err
	}
	m := &SplitMetrics{
		runs:                 b.counter("labflow_split_runs_total", "Total number of work order split runs by outcome", "{runs}"),
		jobsCreated:          b.counter("labflow_split_jobs_created_total", "Total number of jobs committed by successful splits", "{jobs}"),
		setsCompensated:      b.counter("labflow_split_sets_compensated_total", "Total number of remote sets destroyed by compensation", "{sets}"),
		compensationFailures: b.counter("labflow_split_compensation_failures_total", "Total number of compensating deletes that failed", "{sets}"),
		duration:             b.seconds("labflow_split_duration_seconds", "Duration of work order split runs in seconds", SplitDurationBuckets),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordSplit records one finished split run.
func (m *SplitMetrics) RecordSplit(ctx context.Context, outcome string, jobs, compensated, failures int, d time.Duration) {
	if m == nil {
		return
	}
	attr := AttrSplitOutcome.String(outcome)
	inc(ctx, m.runs, attr)
	observe(ctx, m.duration, d, attr)
	if jobs > 0 {
		m.jobsCreated.Add(ctx, int64(jobs))
	}
	if compensated > 0 {
		m.setsCompensated.Add(ctx, int64(compensated))
	}
	if failures > 0 {
		m.compensationFailures.Add(ctx, int64(failures))
	}
}

// RecordRefused records a split refused because another one was in progress.
func (m *SplitMetrics) RecordRefused(ctx context.Context) {
	if m == nil {
		return
	}
	inc(ctx, m.runs, AttrSplitOutcome.String(SplitOutcomeRefused))
}
