package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger routes GORM output through zerolog. The request-scoped logger
// in ctx is used when present so query logs carry the request id.
//
// Constraint violations decide Conflict responses; they are only logged in
// Info mode, at debug level. Record-not-found is never logged.
type gormLogger struct {
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger returns a logger.Interface writing to zerolog at level.
func NewGormLogger(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level, slow: slowQueryThreshold}
}

func (g *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *gormLogger) from(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &log.Logger
	}
	sub := l.With().Str("component", "gorm").Logger()
	return &sub
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		g.from(ctx).Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		g.from(ctx).Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		g.from(ctx).Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return
	case err != nil && (IsUniqueViolation(err) || IsCheckViolation(err)):
		if g.level >= logger.Info {
			sql, rows := fc()
			g.from(ctx).Debug().Err(err).Str("sql", sql).Int64("rows", rows).Msg("constraint violation")
		}
	case err != nil && g.level >= logger.Error:
		sql, rows := fc()
		g.from(ctx).Error().Err(err).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query failed")
	case g.slow > 0 && elapsed > g.slow && g.level >= logger.Warn:
		sql, rows := fc()
		g.from(ctx).Warn().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("slow query")
	case g.level >= logger.Info:
		sql, rows := fc()
		g.from(ctx).Debug().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query")
	}
}
