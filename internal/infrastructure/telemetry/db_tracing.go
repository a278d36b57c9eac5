package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// IncludeVariables puts bound query values into spans; never in production
	IncludeVariables bool
	DBSystem         string
}

// RegisterDBTracing installs otelgorm on db so every statement becomes a
// child span of the caller's span, and marks failed statements on the span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	for _, register := range []func() error{
		func() error { return cb.Create().After("gorm:create").Register("db_tracing:create", markStatement) },
		func() error { return cb.Query().After("gorm:query").Register("db_tracing:query", markStatement) },
		func() error { return cb.Update().After("gorm:update").Register("db_tracing:update", markStatement) },
		func() error { return cb.Delete().After("gorm:delete").Register("db_tracing:delete", markStatement) },
	} {
		if err := register(); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled", zap.String("db_system", cfg.DBSystem))
	return nil
}

func markStatement(tx *gorm.DB) {
	if tx.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(tx.Statement.Context)
	if !span.IsRecording() {
		return
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
}
