//nolint:goprintffuncname
package sql

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LoggerAdaptorConfig struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// loggerAdaptor routes gorm's logging through logrus. SQL statements are
// traced at debug level, slow ones at warn level.
type loggerAdaptor struct {
	logger *logrus.Logger
	config LoggerAdaptorConfig
}

//nolint:ireturn
func NewLoggerAdaptor(l *logrus.Logger, cfg LoggerAdaptorConfig) logger.Interface {
	return &loggerAdaptor{logger: l, config: cfg}
}

// LogMode is a no-op, the level follows the logrus logger.
//
//nolint:ireturn
func (l *loggerAdaptor) LogMode(_ logger.LogLevel) logger.Interface {
	return l
}

const callerDepth = 16

// entry tags the log line with the first caller outside gorm and this file.
func (l *loggerAdaptor) entry(ctx context.Context) *logrus.Entry {
	entry := l.logger.WithContext(ctx)

	pcs := make([]uintptr, callerDepth)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)])

	for frame, more := frames.Next(); more; frame, more = frames.Next() {
		if strings.HasPrefix(frame.Function, "gorm.io/") || strings.HasSuffix(frame.File, "store/sql/logger.go") {
			continue
		}

		return entry.WithField("caller", fmt.Sprintf("%s:%d", frame.File, frame.Line))
	}

	return entry
}

func (l *loggerAdaptor) Info(ctx context.Context, format string, args ...any) {
	l.entry(ctx).Infof(format, args...)
}

func (l *loggerAdaptor) Warn(ctx context.Context, format string, args ...any) {
	l.entry(ctx).Warnf(format, args...)
}

func (l *loggerAdaptor) Error(ctx context.Context, format string, args ...any) {
	l.entry(ctx).Errorf(format, args...)
}

func (l *loggerAdaptor) Trace(
	ctx context.Context,
	begin time.Time,
	statement func() (sql string, rowsAffected int64),
	err error,
) {
	elapsed := time.Since(begin)
	ignored := errors.Is(err, gorm.ErrRecordNotFound) && l.config.IgnoreRecordNotFoundError
	slow := l.config.SlowThreshold != 0 && elapsed > l.config.SlowThreshold

	var level logrus.Level

	switch {
	case err != nil && !ignored:
		level = logrus.ErrorLevel
	case slow:
		level = logrus.WarnLevel
	default:
		level = logrus.DebugLevel
	}

	if !l.logger.IsLevelEnabled(level) {
		return
	}

	sql, rows := statement()
	entry := l.entry(ctx).WithFields(logrus.Fields{
		"elapsed": elapsed.Round(time.Microsecond).String(),
		"sql":     sql,
	})

	if rows >= 0 {
		entry = entry.WithField("rows", rows)
	}

	switch level {
	case logrus.ErrorLevel:
		entry.WithError(err).Error("SQL error")
	case logrus.WarnLevel:
		entry.Warnf("SLOW SQL >= %v", l.config.SlowThreshold)
	default:
		entry.Debug("SQL trace")
	}
}
