package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/tradegate/pkg/config"
)

// Logger is a structured logger wrapper around zerolog
// ⭐ SSOT: all logging goes through this package
type Logger struct {
	zlog zerolog.Logger
}

// New creates a new Logger instance from config
// ⭐ SSOT: the only place a process-wide zerolog instance is built
func New(cfg *config.Config) *Logger {
	var output io.Writer
	if cfg.LogFormat == "console" || cfg.LogFormat == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	} else {
		output = os.Stdout
	}

	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger()

	return &Logger{zlog: zlog}
}

// NewWithWriter builds a JSON logger writing to w at the given level.
// It leaves the global level untouched.
func NewWithWriter(w io.Writer, level string) *Logger {
	zlog := zerolog.New(w).
		Level(parseLogLevel(level)).
		With().
		Timestamp().
		Logger()
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// parseLogLevel converts string log level to zerolog.Level
func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.zlog.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.zlog.Warn().Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.zlog.Error().Msg(msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string) {
	l.zlog.Fatal().Msg(msg)
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithFields returns a new logger with multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithError returns a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// WithComponent tags every entry with the emitting component
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// WithContext returns a new logger with context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{zlog: l.zlog.With().Ctx(ctx).Logger()}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.zlog.Fatal().Msgf(format, args...)
}

// Zerolog returns the underlying zerolog.Logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}
