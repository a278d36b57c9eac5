package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormLogger writes gorm's statement log to zap. Statement entries carry the
// request, work order and trace fields found in the statement context.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	// logNotFound also logs ErrRecordNotFound, which repositories treat as a result
	logNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as
// slow. Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithIgnoreRecordNotFoundError controls whether not-found lookups are
// logged as errors. They are ignored by default.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = !ignore }
}

// NewGormLogger creates a gorm logger writing to a "gorm" child of zapLogger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: defaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy at the given level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	if ce := l.logger.Check(level, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write(Fields(ctx)...)
	}
}

// Trace logs one executed statement: failures at error, slow statements at
// warn, everything else at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		level zapcore.Level
		msg   string
	)
	switch {
	case err != nil && l.level >= gormlogger.Error:
		if !l.logNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		level, msg = zapcore.ErrorLevel, "sql failed"
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		level, msg = zapcore.WarnLevel, fmt.Sprintf("slow sql >= %v", l.slowThreshold)
	case l.level >= gormlogger.Info:
		level, msg = zapcore.DebugLevel, "sql"
	default:
		return
	}

	ce := l.logger.Check(level, msg)
	if ce == nil {
		return
	}
	sql, rows := fc()
	fields := append([]zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}, Fields(ctx)...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

// MapGormLogLevel maps the application log level to a gorm log level.
// Only debug logs every statement; other levels log slow or failed ones.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
