// Package logger provides the structured logging facade used across the
// engine, backed by zerolog. Components take a *Logger instead of importing
// zerolog directly so output configuration stays in one place.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger tagged with the owning component.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger for the named component writing to stderr.
func New(component string) *Logger {
	return NewWithWriter(component, os.Stderr)
}

// NewWithWriter creates a logger for the named component writing to w.
func NewWithWriter(component string, w io.Writer) *Logger {
	zl := zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// NewConsole creates a logger with human-readable console output, used by
// the CLI.
func NewConsole(component string) *Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	zl := zerolog.New(cw).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// SetGlobalLevel sets the process-wide minimum level from a string
// ("debug", "info", "warn", "error"). Unknown values keep the current level.
func SetGlobalLevel(level string) {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

// With returns a child logger with an extra field attached to every event.
func (l *Logger) With(key string, val interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, val).Logger()}
}

// WithConnection returns a child logger tagged with a connection ID.
func (l *Logger) WithConnection(id string) *Logger {
	return &Logger{zl: l.zl.With().Str("connection_id", id).Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error logs at error level with an optional error attached.
func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.emit(l.zl.Error().Err(err), msg, fields)
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Val)
	}
	ev.Msg(msg)
}

// Field is one structured key/value pair.
type Field struct {
	Key string
	Val interface{}
}

// F builds a Field.
func F(key string, val interface{}) Field {
	return Field{Key: key, Val: val}
}
