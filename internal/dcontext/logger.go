package dcontext

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
)

// baseLogger is the root of every logger handed out when the context does
// not carry one.
var baseLogger = logrus.StandardLogger().WithField("go.version", runtime.Version())

// Logger is the leveled subset of *logrus.Entry the generator logs through.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type loggerKey struct{}

// WithLogger returns a context carrying logger. Only *logrus.Entry values
// are picked up again by GetLogger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the context's logger. Each key that resolves to a value
// on ctx becomes a field named fmt.Sprint(key).
func GetLogger(ctx context.Context, keys ...any) Logger {
	return entry(ctx, keys...)
}

// GetLoggerWithField is GetLogger with one extra field.
func GetLoggerWithField(ctx context.Context, key, value any, keys ...any) Logger {
	return entry(ctx, keys...).WithField(fmt.Sprint(key), value)
}

// GetLoggerWithFields is GetLogger with extra fields.
func GetLoggerWithFields(ctx context.Context, fields map[any]any, keys ...any) Logger {
	lfields := make(logrus.Fields, len(fields))
	for key, value := range fields {
		lfields[fmt.Sprint(key)] = value
	}
	return entry(ctx, keys...).WithFields(lfields)
}

func entry(ctx context.Context, keys ...any) *logrus.Entry {
	logger, ok := ctx.Value(loggerKey{}).(*logrus.Entry)
	if !ok {
		logger = baseLogger
	}

	fields := logrus.Fields{}
	for _, key := range keys {
		if v := ctx.Value(key); v != nil {
			fields[fmt.Sprint(key)] = v
		}
	}
	return logger.WithFields(fields)
}
