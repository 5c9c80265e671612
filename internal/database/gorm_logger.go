package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/charlesng35/campusconnect/pkg/logger"
)

// ZapGormLogger routes gorm logs through the global zap logger.
type ZapGormLogger struct {
	LogLevel                  gormlogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewZapGormLogger builds a gorm logger at the supplied level.
func NewZapGormLogger(level gormlogger.LogLevel, slowThreshold time.Duration, ignoreRecordNotFound bool) *ZapGormLogger {
	return &ZapGormLogger{
		LogLevel:                  level,
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: ignoreRecordNotFound,
	}
}

func (z *ZapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cpy := *z
	cpy.LogLevel = level
	return &cpy
}

func (z *ZapGormLogger) Info(_ context.Context, msg string, data ...any) {
	if z.LogLevel >= gormlogger.Info {
		z.log().Info(fmt.Sprintf(msg, data...))
	}
}

func (z *ZapGormLogger) Warn(_ context.Context, msg string, data ...any) {
	if z.LogLevel >= gormlogger.Warn {
		z.log().Warn(fmt.Sprintf(msg, data...))
	}
}

func (z *ZapGormLogger) Error(_ context.Context, msg string, data ...any) {
	if z.LogLevel >= gormlogger.Error {
		z.log().Error(fmt.Sprintf(msg, data...))
	}
}

func (z *ZapGormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && z.LogLevel >= gormlogger.Error && (!z.IgnoreRecordNotFoundError || !errors.Is(err, gorm.ErrRecordNotFound)):
		sql, rows := fc()
		z.log().Error("query failed",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	case z.SlowThreshold > 0 && elapsed > z.SlowThreshold && z.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		z.log().Warn("slow query",
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	case z.LogLevel >= gormlogger.Info:
		sql, rows := fc()
		z.log().Debug("query",
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	}
}

func (z *ZapGormLogger) log() *zap.Logger {
	return logger.WithModule("database")
}
