package logger

import (
	"context"
	"io"
	"os"

	"catalog-migrator/internal/shared/contextkeys"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// Constants for configuration
const (
	// Log formats
	logFormatJSON = "json"
	logFormatText = "text"

	// Backends
	BackendLogrus = "logrus"
	BackendZap    = "zap"

	// DefaultVerbosity is info-and-above, the original tool's default.
	DefaultVerbosity = 4

	// Timestamp format
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger defines the interface for structured logging operations
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	// Dump writes a deep dump of v, only at the highest verbosity.
	Dump(label string, v interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// Config selects backend, format and verbosity.
type Config struct {
	// Verbosity follows the CLI -v scale: 0 fatal only, 1 error, 2 warn,
	// 3 info, 4 debug, 5 and above debug with payload dumps.
	Verbosity int
	Format    string
	Backend   string
	Output    io.Writer
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger instance with default configuration
func NewLogger() Logger {
	return NewLoggerWithConfig(Config{Verbosity: DefaultVerbosity, Format: os.Getenv("LOG_FORMAT")})
}

// NewLoggerWithConfig creates a logger with custom configuration
func NewLoggerWithConfig(cfg Config) Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Backend == BackendZap {
		return newZapLogger(cfg)
	}

	logger := logrus.New()
	logger.SetLevel(LogrusLevel(cfg.Verbosity))
	logger.SetFormatter(getLogFormatter(cfg.Format))
	logger.SetOutput(cfg.Output)

	return &LogrusLogger{
		entry: logrus.NewEntry(logger),
	}
}

// LogrusLevel maps a CLI verbosity to a logrus level.
func LogrusLevel(verbosity int) logrus.Level {
	switch {
	case verbosity >= 5:
		return logrus.TraceLevel
	case verbosity == 4:
		return logrus.DebugLevel
	case verbosity == 3:
		return logrus.InfoLevel
	case verbosity == 2:
		return logrus.WarnLevel
	case verbosity == 1:
		return logrus.ErrorLevel
	default:
		return logrus.FatalLevel
	}
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(args ...interface{}) {
	l.entry.Debug(args...)
}

// Info logs an info message
func (l *LogrusLogger) Info(args ...interface{}) {
	l.entry.Info(args...)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(args ...interface{}) {
	l.entry.Warn(args...)
}

// Error logs an error message
func (l *LogrusLogger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

// Fatal logs a fatal message and exits
func (l *LogrusLogger) Fatal(args ...interface{}) {
	l.entry.Fatal(args...)
}

// Debugf logs a formatted debug message
func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Infof logs a formatted info message
func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *LogrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// Dump logs a spew dump of v at trace level
func (l *LogrusLogger) Dump(label string, v interface{}) {
	if !l.entry.Logger.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	l.entry.Trace(label + "\n" + spew.Sdump(v))
}

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

// WithContext adds context information to the logger using proper context keys
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(contextFields(ctx))),
	}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{
		entry: l.entry.WithField("component", component),
	}
}

// contextFields extracts the well-known context values as log fields
func contextFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{}
	addContextField(ctx, contextkeys.RunIDKey, "run_id", fields)
	addContextField(ctx, contextkeys.ResourceKey, "resource", fields)
	addContextField(ctx, contextkeys.StoreKey, "store", fields)
	addContextField(ctx, contextkeys.OperationKey, "operation", fields)
	return fields
}

// addContextField extracts a value from context and adds it to fields if present
func addContextField(ctx context.Context, key interface{}, fieldName string, fields map[string]interface{}) {
	if val := ctx.Value(key); val != nil {
		if strVal, ok := val.(string); ok && strVal != "" {
			fields[fieldName] = strVal
		}
	}
}

// getLogFormatter picks the logrus formatter for the configured format
func getLogFormatter(format string) logrus.Formatter {
	if format == logFormatJSON {
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		}
	}

	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: textTimestamp,
	}
}
