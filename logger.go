package msgdriver

import (
	"log/slog"
	"strings"
)

// LogLevel names a Logger method.
type LogLevel string

// Log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger is the logging contract of drivers, units and shared contexts.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultLogger returns the logger used when none is configured.
func DefaultLogger() Logger {
	return slog.Default()
}

// LogConfig controls the line a driver logs when a request ends.
type LogConfig struct {
	// LevelSuccess defaults to debug, LevelFailure to error.
	LevelSuccess LogLevel
	LevelFailure LogLevel

	// MessageSuccess defaults to "Request processed".
	MessageSuccess string
	// MessageFailure defaults to "Request failed".
	MessageFailure string
}

// Parse returns c with levels lower-cased and unset fields defaulted.
func (c LogConfig) Parse() LogConfig {
	c.LevelSuccess = LogLevel(strings.ToLower(string(c.LevelSuccess)))
	c.LevelFailure = LogLevel(strings.ToLower(string(c.LevelFailure)))
	if c.LevelSuccess == "" {
		c.LevelSuccess = LogLevelDebug
	}
	if c.LevelFailure == "" {
		c.LevelFailure = LogLevelError
	}
	if c.MessageSuccess == "" {
		c.MessageSuccess = "Request processed"
	}
	if c.MessageFailure == "" {
		c.MessageFailure = "Request failed"
	}
	return c
}

// LogFunc returns the method of log matching level.
func LogFunc(level LogLevel, log Logger) func(msg string, args ...any) {
	switch level {
	case LogLevelDebug:
		return log.Debug
	case LogLevelWarn:
		return log.Warn
	case LogLevelError:
		return log.Error
	default:
		return log.Info
	}
}

type argsLogger struct {
	log  Logger
	args []any
}

// WithArgs returns a Logger that appends args to every call.
func WithArgs(log Logger, args ...any) Logger {
	if len(args) == 0 {
		return log
	}
	if l, ok := log.(*slog.Logger); ok {
		return l.With(args...)
	}
	return &argsLogger{log: log, args: args}
}

func (l *argsLogger) with(args []any) []any {
	out := make([]any, 0, len(args)+len(l.args))
	out = append(out, args...)
	return append(out, l.args...)
}

func (l *argsLogger) Debug(msg string, args ...any) { l.log.Debug(msg, l.with(args)...) }
func (l *argsLogger) Info(msg string, args ...any)  { l.log.Info(msg, l.with(args)...) }
func (l *argsLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, l.with(args)...) }
func (l *argsLogger) Error(msg string, args ...any) { l.log.Error(msg, l.with(args)...) }
