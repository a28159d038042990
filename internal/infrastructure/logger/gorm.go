package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const maxLoggedSQL = 512

// GormLogger routes GORM statement logs into zap. Every statement is tagged
// with its verb and target table so ledger writes can be filtered per table.
type GormLogger struct {
	log          *zap.Logger
	level        gormlogger.LogLevel
	slow         time.Duration
	fullSQL      bool
	keepNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as
// slow. Zero disables slow statement warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

// WithFullSQL logs statements untruncated
func WithFullSQL(full bool) GormLoggerOption {
	return func(l *GormLogger) { l.fullSQL = full }
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is
// logged. Lookups of missing projects are routine, so it is ignored by default.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.keepNotFound = !ignore }
}

// NewGormLogger creates a GORM logger writing through base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		log:   base.Named("gorm"),
		level: level,
		slow:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		Ctx(ctx, l.log).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		Ctx(ctx, l.log).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		Ctx(ctx, l.log).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement. Failures log at error, statements over
// the slow threshold at warn and everything else at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && !l.keepNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && l.level >= gormlogger.Error
	slow := l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn
	if !failed && !slow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	verb, table := statementTarget(sql)
	if !l.fullSQL && len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	fields := []zap.Field{
		zap.String("verb", verb),
		zap.String("table", table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if _, scoped := ctx.Value(LoggerKey).(*zap.Logger); !scoped {
		if id := GetRequestID(ctx); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
	}
	log := Ctx(ctx, l.log)

	switch {
	case failed:
		log.Error("SQL statement failed", append(fields, zap.Error(err))...)
	case slow:
		log.Warn("Slow SQL statement", append(fields, zap.Duration("threshold", l.slow))...)
	default:
		log.Debug("SQL statement", fields...)
	}
}

// statementTarget extracts the leading verb and the first table a statement
// touches, e.g. ("UPDATE", "projects").
func statementTarget(sql string) (verb, table string) {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return "", ""
	}
	verb = strings.ToUpper(words[0])

	after := ""
	switch verb {
	case "SELECT", "DELETE":
		after = "FROM"
	case "INSERT":
		after = "INTO"
	case "UPDATE":
		if len(words) > 1 {
			return verb, unquoteIdent(words[1])
		}
		return verb, ""
	default:
		return verb, ""
	}
	for i, w := range words[:len(words)-1] {
		if strings.EqualFold(w, after) {
			return verb, unquoteIdent(words[i+1])
		}
	}
	return verb, ""
}

func unquoteIdent(s string) string {
	s = strings.TrimRight(s, "(,;")
	return strings.Trim(s, "\"`")
}

// MapGormLogLevel maps an application log level to the GORM level
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
