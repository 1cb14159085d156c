// Package telemetry provides structured logging, Prometheus metrics, and
// tracing for the reconciliation engine.
package telemetry

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with engine-specific field helpers.
type Logger struct {
	zlog zerolog.Logger
}

type loggerContextKey struct{}

// LoggerOptions configures a Logger.
type LoggerOptions struct {
	// Level is one of trace, debug, info, warn, error. Default info.
	Level string

	// Console switches to human-readable console output.
	Console bool

	// Output overrides the destination (default stderr).
	Output io.Writer
}

// NewLogger creates a logger with the given options.
func NewLogger(opts LoggerOptions) *Logger {
	var writer io.Writer = os.Stderr
	if opts.Output != nil {
		writer = opts.Output
	}
	if opts.Console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(writer).With().Timestamp().Logger().Level(parseLevel(opts.Level))
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// WithResource returns a child logger tagged with a resource id.
func (l *Logger) WithResource(id string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("resource_id", id).Logger()}
}

// WithRun returns a child logger tagged with a run id.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("run_id", runID).Logger()}
}

// WithContext attaches the logger to a context.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext retrieves the logger from a context, or a default stderr
// logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zlog: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Info logs at info level.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Warn logs at warn level.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// Error logs at error level.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
