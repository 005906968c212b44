// Package logger provides the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Params configures the process logger.
type Params struct {
	Level  string    // debug, info, warn, error
	Output io.Writer // defaults to os.Stderr
}

var (
	mu  sync.RWMutex
	std = newLogger(os.Stderr, log.InfoLevel)
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}

// Init replaces the process logger. It must be called before components
// derive their loggers with With.
func Init(p Params) {
	w := p.Output
	if w == nil {
		w = os.Stderr
	}
	l := newLogger(w, ParseLevel(p.Level))

	mu.Lock()
	std = l
	mu.Unlock()
}

// ParseLevel maps a level name to a log level. Unknown names give info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Default returns the process logger.
func Default() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// With returns a child logger tagged with a component name.
func With(component string) *log.Logger {
	return Default().With("component", component)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *log.Logger {
	return newLogger(io.Discard, log.FatalLevel)
}

// Debug writes a message at DEBUG level.
func Debug(msg string, keyvals ...any) { Default().Debug(msg, keyvals...) }

// Info writes a message at INFO level.
func Info(msg string, keyvals ...any) { Default().Info(msg, keyvals...) }

// Warn writes a message at WARN level.
func Warn(msg string, keyvals ...any) { Default().Warn(msg, keyvals...) }

// Error writes a message at ERROR level.
func Error(msg string, keyvals ...any) { Default().Error(msg, keyvals...) }
