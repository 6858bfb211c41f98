// Package definition holds the small cross-cutting interfaces and defaults
// every other package in the module is built against: the Logger interface,
// the node Configuration, and the metrics registry. Keeping these in one
// leaf package (mirroring go-mcast's pkg/mcast/definition) means no
// other package needs to depend on a concrete logging or metrics library
// directly.
package definition

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow logging surface every other package is written
// against. It is deliberately small, following
// pkg/mcast/definition/default_logger.go's DefaultLogger shape, so that
// swapping the backing implementation never ripples through call sites.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	// WithField returns a derived Logger that attaches key=value to every
	// subsequent entry, for per-connection/per-peer log scoping.
	WithField(key string, value interface{}) Logger
}

// logrusLogger is the default Logger implementation, replacing the
// teacher's stdlib-log-backed DefaultLogger with logrus (already an
// indirect dependency of go-mcast's own go.mod) so structured fields are
// available without inventing a new formatting convention.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger builds the default Logger, writing leveled, timestamped
// entries to stderr exactly as go-mcast's DefaultLogger did, but through
// logrus so per-connection/per-peer fields can be attached cheaply.
func NewDefaultLogger() Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

func (l *logrusLogger) Info(v ...interface{}) { l.entry.Info(v...) }
func (l *logrusLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *logrusLogger) Warn(v ...interface{}) { l.entry.Warn(v...) }
func (l *logrusLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *logrusLogger) Error(v ...interface{}) { l.entry.Error(v...) }
func (l *logrusLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }
func (l *logrusLogger) Debug(v ...interface{}) { l.entry.Debug(v...) }
func (l *logrusLogger) Debugf(format string, v ...interface{}) { l.entry.Debugf(format, v...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}
