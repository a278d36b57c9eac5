package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records query counts and latencies of the local database.
type DBMetrics struct {
	queries       metric.Int64Counter
	duration      metric.Float64Histogram
	slowQueries   metric.Int64Counter
	slowThreshold time.Duration
}

// NewDBMetrics creates the database instruments on meter. Statements slower
// than slowThreshold are also counted per table.
func NewDBMetrics(meter metric.Meter, slowThreshold time.Duration) (*DBMetrics, error) {
	b, err := newInstruments("NewDBMetrics", meter)
	if err != nil {
		return nil, err
	}
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	m := &DBMetrics{
		queries:       b.counter("labflow_db_query_total", "Total number of database queries by operation type", "{query}"),
		duration:      b.seconds("labflow_db_query_duration_seconds", "Database query latency distribution in seconds", DBDurationBuckets),
		slowQueries:   b.counter("labflow_db_slow_query_total", "Total number of slow database queries", "{query}"),
		slowThreshold: slowThreshold,
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordQuery records one completed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}
	inc(ctx, m.queries, AttrDBOperation.String(operation))
	observe(ctx, m.duration, duration, AttrDBOperation.String(operation))

	if duration > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		inc(ctx, m.slowQueries, AttrDBTable.String(table))
	}
}

// DBMetricsPlugin is a GORM plugin feeding DBMetrics from statement callbacks.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

// NewDBMetricsPlugin creates a new GORM plugin for database metrics.
func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string {
	return "labflow:db_metrics"
}

type dbMetricsContextKey string

const dbMetricsStartTimeKey dbMetricsContextKey = "db_metrics_start_time"

// Initialize registers before/after callbacks on every statement kind.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, dbMetricsStartTimeKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(tx.Statement.SQL.String())
			}
			p.record(tx, op)
		}
	}

	cb := db.Callback()
	steps := []struct {
		before func() error
		after  func() error
	}{
		{
			func() error { return cb.Create().Before("gorm:create").Register("db_metrics:before_create", before) },
			func() error { return cb.Create().After("gorm:create").Register("db_metrics:after_create", after("INSERT")) },
		},
		{
			func() error { return cb.Query().Before("gorm:query").Register("db_metrics:before_query", before) },
			func() error { return cb.Query().After("gorm:query").Register("db_metrics:after_query", after("SELECT")) },
		},
		{
			func() error { return cb.Update().Before("gorm:update").Register("db_metrics:before_update", before) },
			func() error { return cb.Update().After("gorm:update").Register("db_metrics:after_update", after("UPDATE")) },
		},
		{
			func() error { return cb.Delete().Before("gorm:delete").Register("db_metrics:before_delete", before) },
			func() error { return cb.Delete().After("gorm:delete").Register("db_metrics:after_delete", after("DELETE")) },
		},
		{
			func() error { return cb.Raw().Before("gorm:raw").Register("db_metrics:before_raw", before) },
			func() error { return cb.Raw().After("gorm:raw").Register("db_metrics:after_raw", after("")) },
		},
	}
	for _, step := range steps {
		if err := step.before(); err != nil {
			return err
		}
		if err := step.after(); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBMetricsPlugin) record(tx *gorm.DB, operation string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var duration time.Duration
	if start, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
		duration = time.Since(start)
	}
	p.metrics.RecordQuery(ctx, operation, tx.Statement.Table, duration)
}

func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

// RegisterDBMetrics installs the metrics plugin on db when telemetry is enabled.
func RegisterDBMetrics(db *gorm.DB, providers *Providers, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if !providers.Enabled() {
		logger.Debug("Telemetry disabled, skipping database metrics")
		return nil, nil
	}
	metrics, err := NewDBMetrics(providers.Meter("db.client"), slowThreshold)
	if err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(metrics)); err != nil {
		return nil, err
	}
	logger.Info("Database metrics registered", zap.Duration("slow_threshold", metrics.slowThreshold))
	return metrics, nil
}
