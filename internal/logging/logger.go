// Package logging provides the Logger used across ejson-action.
//
// Components depend on the small Logger interface so tests can pass a no-op
// or recording implementation. The production implementation is backed by
// logrus and writes either GitHub Actions workflow commands or colored
// console lines, depending on where the binary runs.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger provides structured logging for action operations.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

// Noop returns a Logger that discards everything.
func Noop() Logger {
	return noopLogger{}
}

// Options configures New.
type Options struct {
	// Out receives all log lines. Defaults to os.Stdout, which is where the
	// Actions runner looks for workflow commands.
	Out io.Writer
	// Actions selects workflow-command output (::warning:: and friends).
	Actions bool
	// Debug enables debug-level messages.
	Debug bool
}

// New creates a logrus-backed Logger.
func New(opts Options) Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	if opts.Debug {
		l.SetLevel(logrus.DebugLevel)
	}
	if opts.Actions {
		l.SetFormatter(&ActionsFormatter{})
	} else {
		l.SetFormatter(&ConsoleFormatter{})
	}

	return &logrusLogger{l: l}
}

type logrusLogger struct {
	l *logrus.Logger
}

func (g *logrusLogger) Debug(msg string, keysAndValues ...interface{}) {
	g.entry(keysAndValues).Debug(msg)
}

func (g *logrusLogger) Info(msg string, keysAndValues ...interface{}) {
	g.entry(keysAndValues).Info(msg)
}

func (g *logrusLogger) Warn(msg string, keysAndValues ...interface{}) {
	g.entry(keysAndValues).Warn(msg)
}

func (g *logrusLogger) Error(msg string, keysAndValues ...interface{}) {
	g.entry(keysAndValues).Error(msg)
}

func (g *logrusLogger) entry(keysAndValues []interface{}) *logrus.Entry {
	return g.l.WithFields(fields(keysAndValues))
}

// fields converts alternating key/value pairs into logrus fields. A trailing
// key without a value is recorded under "!BADKEY", the same convention
// log/slog uses.
func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok || i+1 >= len(keysAndValues) {
			f["!BADKEY"] = keysAndValues[i]
			continue
		}
		f[key] = keysAndValues[i+1]
	}
	return f
}
