package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogConfig controls how statements issued by a pipeline run are logged
type SQLLogConfig struct {
	// Level is one of silent, error, warn, info or debug
	Level string
	// Slow flags statements slower than this. Zero disables the check.
	Slow time.Duration
	// MaxSQL caps the logged statement length. Zero keeps whole statements.
	MaxSQL int
}

// DefaultSQLLogConfig logs warnings, flags statements over two seconds and
// cuts bulk inserts to 2000 bytes.
func DefaultSQLLogConfig() SQLLogConfig {
	return SQLLogConfig{Level: "warn", Slow: 2 * time.Second, MaxSQL: 2000}
}

// SQLLogger routes gorm's statement log through zap, tagging each entry with
// the run_id and stage carried by the context.
type SQLLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	cfg   SQLLogConfig
}

// NewSQLLogger creates a gorm logger from cfg
func NewSQLLogger(zapLogger *zap.Logger, cfg SQLLogConfig) *SQLLogger {
	return &SQLLogger{
		log:   zapLogger.Named("gorm"),
		level: MapGormLogLevel(cfg.Level),
		cfg:   cfg,
	}
}

// LogMode implements gormlogger.Interface
func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, msg, data)
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, msg, data)
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, msg, data)
}

func (l *SQLLogger) printf(ctx context.Context, at gormlogger.LogLevel, msg string, data []any) {
	if l.level < at {
		return
	}
	line := fmt.Sprintf(msg, data...)
	fields := runFields(ctx)
	switch at {
	case gormlogger.Error:
		l.log.Error(line, fields...)
	case gormlogger.Warn:
		l.log.Warn(line, fields...)
	default:
		l.log.Info(line, fields...)
	}
}

// Trace logs one executed statement. Missing records are expected lookups
// and never logged as errors.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.cfg.Slow > 0 && elapsed > l.cfg.Slow
	switch {
	case err != nil:
	case slow && l.level >= gormlogger.Warn:
	case l.level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	fields := append(runFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", truncateSQL(sql, l.cfg.MaxSQL)),
	)
	switch {
	case err != nil:
		l.log.Error("SQL Error", append(fields, zap.Error(err))...)
	case slow && l.level >= gormlogger.Warn:
		l.log.Warn(fmt.Sprintf("SLOW SQL >= %v", l.cfg.Slow), fields...)
	default:
		l.log.Debug("SQL Query", fields...)
	}
}

func runFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if stage := GetStage(ctx); stage != "" {
		fields = append(fields, zap.String("stage", stage))
	}
	return fields
}

// MapGormLogLevel maps string log level to GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func truncateSQL(sql string, max int) string {
	if max <= 0 || len(sql) <= max {
		return sql
	}
	return fmt.Sprintf("%s... (%d bytes)", sql[:max], len(sql))
}
