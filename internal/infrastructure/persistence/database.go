package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/labflow/backend/internal/infrastructure/config"
	"github.com/labflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the postgres connection shared by the repositories
type Database struct {
	DB *gorm.DB
}

// Option configures Open
type Option func(*gorm.Config)

// WithLogger routes gorm's statement log through l
func WithLogger(l logger.Interface) Option {
	return func(c *gorm.Config) { c.Logger = l }
}

// WithPreparedStatements toggles gorm's prepared statement cache
func WithPreparedStatements(enabled bool) Option {
	return func(c *gorm.Config) { c.PrepareStmt = enabled }
}

// Open connects to postgres, applies the pool limits and checks the
// connection with a ping.
func Open(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// the split saga opens its own transaction; single statements need none
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: db}, nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Instrument attaches the otelgorm tracing plugin and the query metrics
// plugin. Each is skipped when disabled.
func (d *Database) Instrument(tracing telemetry.DBTracingConfig, providers *telemetry.Providers, slowThreshold time.Duration, log *zap.Logger) error {
	if err := telemetry.RegisterDBTracing(d.DB, tracing, log); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}
	if _, err := telemetry.RegisterDBMetrics(d.DB, providers, slowThreshold, log); err != nil {
		return fmt.Errorf("failed to register database metrics: %w", err)
	}
	return nil
}
