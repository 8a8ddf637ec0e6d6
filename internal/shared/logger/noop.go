package logger

import "io"

// NewNopLogger returns a logger that discards everything. Tests use it.
func NewNopLogger() Logger {
	return NewLoggerWithConfig(Config{Verbosity: 0, Output: io.Discard})
}

// NopIfNil returns log, or a discarding logger when log is nil.
func NopIfNil(log Logger) Logger {
	if log == nil {
		return NewNopLogger()
	}
	return log
}
