package logger

import (
	"fmt"
	"os"
)

// Constants for logging levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments the service may run in
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// New creates environment appropriate logger: human readable text for dev,
// JSON for prod
func New(environment string, level string) (Logger, error) {
	switch environment {
	case EnvDevelopment:
		return NewTextLogger(level)
	case EnvProduction:
		return NewJSONLogger(level)
	default:
		return nil, fmt.Errorf("unknown environment: %q", environment)
	}
}

// NewTextLogger creates a logger with human readable output on stderr
func NewTextLogger(level string) (Logger, error) {
	return newSlogLogger(textFormat, os.Stderr, level)
}

// NewJSONLogger creates a logger with one JSON object per line on stderr
func NewJSONLogger(level string) (Logger, error) {
	return newSlogLogger(jsonFormat, os.Stderr, level)
}

// NewNoOpLogger creates a logger that discards all log messages
func NewNoOpLogger() Logger {
	return newNoOpLogger()
}
