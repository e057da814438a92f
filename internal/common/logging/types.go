// Package logging defines the structured logging surface used across the
// application: severity levels, key/value fields, the Logger interface, and
// a process-wide default reachable through top-level helpers.
package logging

import (
	"context"
	"io"
	"strings"
	"sync"
)

// LogLevel is a log message severity.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the level name as it appears in log output.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to its LogLevel. Unrecognized names fall back
// to InfoLevel so a typo in LOG_LEVEL never silences the log.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the logging interface the rest of the application depends on.
// The zap adapter is the production implementation; tests may substitute
// their own.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// LogConfig configures a logger. A nil Output writes to stdout.
type LogConfig struct {
	Level  LogLevel
	Output io.Writer
}

var (
	globalLogger Logger
	globalMu     sync.RWMutex
	initOnce     sync.Once
)

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger, building the default on
// first use so packages can log before InitGlobalLogger runs.
func GetGlobalLogger() Logger {
	initOnce.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		if globalLogger == nil {
			globalLogger = NewDefaultLogger()
		}
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Debug logs a debug message through the process-wide logger.
func Debug(msg string, fields ...Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs an info message through the process-wide logger.
func Info(msg string, fields ...Field) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs a warning through the process-wide logger.
func Warn(msg string, fields ...Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs an error through the process-wide logger.
func Error(msg string, err error, fields ...Field) {
	GetGlobalLogger().Error(msg, err, fields...)
}
