// Package scsibotlog wraps [log/slog] with the component tagging this
// module's packages use for log filtering, plus helpers that shape a log
// line around the CBW tag, opcode, and CSW status every dispatched SCSI
// command carries.
package scsibotlog

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ardnew/scsibot"
)

// Component identifies a subsystem for log filtering.
type Component string

// Module component identifiers.
const (
	ComponentCodec  Component = "codec"
	ComponentHost   Component = "host"
	ComponentTarget Component = "target"
	ComponentChan   Component = "channel"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota
	LogFormatJSON
)

var (
	// DefaultLogger is the default logger used by this module.
	DefaultLogger *slog.Logger

	logLevel = new(slog.LevelVar)
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLevel sets the minimum log level for all of this module's logging.
func SetLevel(level slog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel.Set(level)
}

// Level returns the current minimum log level.
func Level() slog.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logLevel.Level()
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetFormat configures the default logger to use the specified format.
// The logger writes to os.Stderr at the current log level.
func SetFormat(format LogFormat) {
	logMutex.Lock()
	defer logMutex.Unlock()
	opts := &slog.HandlerOptions{Level: logLevel}
	switch format {
	case LogFormatJSON:
		DefaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	default:
		DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
}

// New creates a new text logger writing to w.
func New(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Debug logs a debug message tagged with component.
func Debug(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.Debug(msg, append([]any{"component", string(component)}, args...)...)
}

// Info logs an info message tagged with component.
func Info(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.Info(msg, append([]any{"component", string(component)}, args...)...)
}

// Warn logs a warning message tagged with component.
func Warn(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.Warn(msg, append([]any{"component", string(component)}, args...)...)
}

// Error logs an error message tagged with component.
func Error(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.Error(msg, append([]any{"component", string(component)}, args...)...)
}

// Command logs a Debug message for a dispatched CBW, attaching its tag
// and opcode ahead of any caller-supplied fields.
func Command(component Component, msg string, tag uint32, opcode uint8, args ...any) {
	Debug(component, msg, append([]any{"tag", tag, "opcode", opcode}, args...)...)
}

// CSWStatus logs a Debug message for an emitted CSW, attaching its tag and
// the human-readable name of its status byte.
func CSWStatus(component Component, msg string, tag uint32, status uint8, args ...any) {
	Debug(component, msg, append([]any{"tag", tag, "status", statusName(status)}, args...)...)
}

func statusName(status uint8) string {
	switch status {
	case scsibot.StatusPassed:
		return "passed"
	case scsibot.StatusFailed:
		return "failed"
	case scsibot.StatusPhaseError:
		return "phase_error"
	default:
		return "unknown"
	}
}
