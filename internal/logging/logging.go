// Package logging configures the logrus logger shared by the CLI commands.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to stderr so stdout stays free for
// templates and JSON results.
func New(level, format string) *logrus.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	SetLogLevel(logger, level)
	if strings.EqualFold(format, FormatJSON) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger
}

// SetLogLevel parses level and applies it, falling back to info for
// unknown values.
func SetLogLevel(logger *logrus.Logger, level string) {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(parsed)
}

// Discard returns a logger that drops everything. Used by tests and
// library callers that pass no logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
