package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// global backs every context that carries no logger of its own.
	//nolint:gochecknoglobals // Every stage of the launcher logs through it.
	global *zap.SugaredLogger
	// level is shared by all loggers built with a nil enabler, so
	// PACKAGE_NONODO_LOG_LEVEL applies after they were created.
	//nolint:gochecknoglobals // Adjusted once the configuration is loaded.
	level = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() { //nolint:gochecknoinits // Records emitted before configuration must not be lost.
	SetLogger(New(nil))
}

// New builds a console logger writing to stderr. Stdout is never used: in
// inherit mode it belongs to the supervised node, and nonodo-fetch prints the
// executable path there for scripts to capture. A nil enabler selects the
// shared level controlled by SetLevel.
func New(enabler zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	if enabler == nil {
		enabler = level
	}

	//nolint:exhaustruct // Unset encoder fields keep zap defaults.
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		NameKey:          "logger",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)

	return zap.New(core, options...).Sugar()
}

// ParseLogLevel maps a PACKAGE_NONODO_LOG_LEVEL value to a zap level.
// The second result is false for unknown names.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Logger returns the fallback logger.
func Logger() *zap.SugaredLogger {
	return global
}

// SetLogger replaces the fallback logger. Call it before any goroutine logs.
func SetLogger(l *zap.SugaredLogger) {
	global = l
}

// SetLevel changes the shared level.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// Sync flushes the fallback logger. The launcher calls it before re-raising a
// node's signal against itself, since that may end the process.
func Sync() {
	_ = global.Sync()
}

// DebugKV logs progress detail: state changes, redirects, child output lines.
func DebugKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Debugw(message, kvs...)
}

// Info logs a plain message, for outcomes that need no fields.
func Info(ctx context.Context, args ...any) {
	FromContext(ctx).Info(args...)
}

// InfoKV logs a pipeline milestone with key-value pairs.
func InfoKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Infow(message, kvs...)
}

// WarnKV logs a failure the launcher recovers from.
func WarnKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Warnw(message, kvs...)
}

// ErrorKV logs a failure that ends the invocation.
func ErrorKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Errorw(message, kvs...)
}
