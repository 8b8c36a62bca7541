package gormlog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"github.com/Talha654/overlayPix-backend/pkg/logctx"
)

// ZapLogger implements gorm.io/gorm/logger.Interface and enriches logs with
// trace_id and user_id from context via logctx.FromCtx.
type ZapLogger struct {
	base   *zap.SugaredLogger
	config gormlogger.Config
}

// Options tunes the adapter. Zero values fall back to Info level and a 500ms slow threshold.
type Options struct {
	LogLevel      gormlogger.LogLevel
	SlowThreshold time.Duration
	// ParameterizedQueries logs SQL with placeholders instead of bound values.
	// Payment rows carry provider client secrets, so production turns this on.
	ParameterizedQueries bool
}

func New(base *zap.SugaredLogger, opts ...Options) *ZapLogger {
	cfg := gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Info,
		IgnoreRecordNotFoundError: true,
	}
	if len(opts) > 0 {
		if opts[0].LogLevel != 0 {
			cfg.LogLevel = opts[0].LogLevel
		}
		if opts[0].SlowThreshold > 0 {
			cfg.SlowThreshold = opts[0].SlowThreshold
		}
		cfg.ParameterizedQueries = opts[0].ParameterizedQueries
	}
	return &ZapLogger{base: base, config: cfg}
}

func (z *ZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cfg := z.config
	cfg.LogLevel = level
	return &ZapLogger{base: z.base, config: cfg}
}

// ParamsFilter drops bound values from logged SQL when ParameterizedQueries is set.
func (z *ZapLogger) ParamsFilter(_ context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if z.config.ParameterizedQueries {
		return sql, nil
	}
	return sql, params
}

func (z *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if z.config.LogLevel >= gormlogger.Info {
		logctx.FromCtx(ctx, z.base).Infow(msg, "args", data)
	}
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if z.config.LogLevel >= gormlogger.Warn {
		logctx.FromCtx(ctx, z.base).Warnw(msg, "args", data)
	}
}

func (z *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if z.config.LogLevel >= gormlogger.Error {
		logctx.FromCtx(ctx, z.base).Errorw(msg, "args", data)
	}
}

// expected reports errors the services handle themselves: missing rows and
// unique violations from join races, discount retries and replayed receipts.
func (z *ZapLogger) expected(err error) bool {
	if z.config.IgnoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

func (z *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.config.LogLevel == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	lg := logctx.FromCtx(ctx, z.base)
	fields := []interface{}{
		"rows", rows,
		"elapsed_ms", elapsed.Milliseconds(),
		"caller", shortCaller(utils.FileWithLineNum()),
	}
	switch {
	case err != nil && !z.expected(err):
		lg.Errorw("gorm_trace", append(fields, "err", err, "sql", sql)...)
	case err != nil:
		if z.config.LogLevel >= gormlogger.Info {
			lg.Infow("gorm_expected_error", append(fields, "err", err, "sql", sql)...)
		}
	case z.config.SlowThreshold > 0 && elapsed > z.config.SlowThreshold:
		lg.Warnw("gorm_slow", append(fields, "sql", sql)...)
	case z.config.LogLevel >= gormlogger.Info:
		lg.Infow("gorm", append(fields, "sql", sql)...)
	}
}

// shortCaller trims absolute build paths to repo-relative where possible:
// /home/ci/overlaypix/internal/app/service/guest/service.go:88 -> internal/app/service/guest/service.go:88
func shortCaller(s string) string {
	if s == "" {
		return s
	}
	pathPart, linePart := s, ""
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		pathPart, linePart = s[:idx], s[idx:]
	}
	p := filepath.ToSlash(pathPart)
	for _, marker := range []string{"/internal/", "/pkg/", "/cmd/"} {
		if i := strings.Index(p, marker); i >= 0 {
			return p[i+1:] + linePart
		}
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if n := len(parts); n >= 3 {
		parts = parts[n-3:]
	}
	return strings.Join(parts, "/") + linePart
}
