package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig tunes the statement log. A zero SlowThreshold turns slow query
// warnings off.
type GormConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	LogNotFound   bool
}

// GormLogger sends GORM output to zap, tagged with the request and trace ids
// found on the statement context
type GormLogger struct {
	log *zap.Logger
	cfg GormConfig
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger returns a GORM logger writing to l under the "gorm" name
func NewGormLogger(l *zap.Logger, cfg GormConfig) *GormLogger {
	return &GormLogger{log: l.Named("gorm"), cfg: cfg}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.cfg.Level = level
	return &cp
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if g.cfg.Level >= gormlogger.Info {
		g.scoped(ctx).Sugar().Infof(msg, data...)
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if g.cfg.Level >= gormlogger.Warn {
		g.scoped(ctx).Sugar().Warnf(msg, data...)
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if g.cfg.Level >= gormlogger.Error {
		g.scoped(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement: failures at error, slow statements at
// warn and everything else at debug when the level is Info.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	level := g.cfg.Level
	if level <= gormlogger.Silent {
		return
	}
	if err != nil && !g.cfg.LogNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	slow := g.cfg.SlowThreshold > 0 && elapsed > g.cfg.SlowThreshold
	switch {
	case err != nil && level >= gormlogger.Error:
	case slow && level >= gormlogger.Warn:
	case level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	log := g.scoped(ctx).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	switch {
	case err != nil && level >= gormlogger.Error:
		log.Error("SQL error", zap.Error(err))
	case slow && level >= gormlogger.Warn:
		log.Warn("Slow SQL", zap.Duration("threshold", g.cfg.SlowThreshold))
	default:
		log.Debug("SQL query")
	}
}

func (g *GormLogger) scoped(ctx context.Context) *zap.Logger {
	log := WithTraceContext(ctx, g.log)
	if id := RequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}
	return log
}

// MapGormLogLevel maps an application log level name onto GORM's levels;
// debug and info log every statement.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
