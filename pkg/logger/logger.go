// Package logger wraps logrus with the defaults used by every pciespeed
// command.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// L returns the shared logger
func L() *logrus.Logger {
	return std
}

// SetLevel sets the level from a string such as "debug" or "warn".
func SetLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		std.SetLevel(logrus.DebugLevel)
	case "info", "":
		std.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		std.SetLevel(logrus.WarnLevel)
	case "error":
		std.SetLevel(logrus.ErrorLevel)
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}
	return nil
}

// SetJSON switches between the JSON and text formatters.
func SetJSON(enabled bool) {
	if enabled {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetOutput sets the output for the shared logger
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return std.IsLevelEnabled(logrus.DebugLevel)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// WithField adds a field to the logger
func WithField(key string, value interface{}) *logrus.Entry {
	return std.WithField(key, value)
}

// WithFields adds multiple fields to the logger
func WithFields(fields logrus.Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// WithDevice tags an entry with a PCI address
func WithDevice(address string) *logrus.Entry {
	return std.WithField("device", address)
}

// WithError adds an error field to the logger
func WithError(err error) *logrus.Entry {
	return std.WithError(err)
}
