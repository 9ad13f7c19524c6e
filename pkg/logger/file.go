package logger

import (
	"log"
	"os"
)

// FileLogger appends log lines to a file. Close releases the handle.
type FileLogger struct {
	std *StandardLogger
	f   *os.File
}

// NewFileLogger opens (or creates) the log file at path in append mode.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		std: NewStandardLogger(log.New(f, "", log.LstdFlags)),
		f:   f,
	}, nil
}

// Info logs an informational message to the file.
func (l *FileLogger) Info(format string, args ...interface{}) {
	l.std.Info(format, args...)
}

// Warning logs a warning message to the file.
func (l *FileLogger) Warning(format string, args ...interface{}) {
	l.std.Warning(format, args...)
}

// Error logs an error message to the file.
func (l *FileLogger) Error(format string, args ...interface{}) {
	l.std.Error(format, args...)
}

// Close closes the underlying file. Safe to call more than once.
func (l *FileLogger) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
