// Package logger builds the zap loggers used across the splitter and carries
// request-scoped fields through context.Context.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level, encoding and destination of a logger
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string // Go time layout, ISO8601 with millis when empty
}

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New builds a logger from cfg. fields are attached to every entry; callers
// pass the application name and environment here.
func New(cfg *Config, fields ...zap.Field) (*zap.Logger, error) {
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		ec := encoderConfig(cfg.TimeFormat)
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		enc = zapcore.NewJSONEncoder(encoderConfig(cfg.TimeFormat))
	}

	return zap.New(zapcore.NewCore(enc, sink, levelOf(cfg.Level)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(fields...),
	), nil
}

// levelOf parses level with zap's names plus "warning". Anything unknown
// logs at info.
func levelOf(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zapcore.WarnLevel
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		return zapcore.InfoLevel
	}
	return l
}

func encoderConfig(layout string) zapcore.EncoderConfig {
	if layout == "" {
		layout = defaultTimeFormat
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return ec
}

// openSink opens the log destination. Anything other than stdout or stderr
// is a file path opened for append.
func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %s: %w", output, err)
	}
	return zapcore.AddSync(file), nil
}

// Sync flushes buffered entries. Sync on a terminal or pipe fails with
// EINVAL or ENOTTY and is not reported.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err == nil {
		return nil
	}
	if msg := err.Error(); strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl") {
		return nil
	}
	return err
}
