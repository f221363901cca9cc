// Package logging defines the logging contract Local_Jira's core code
// depends on. The logger itself is an external collaborator: the core
// only ever sees the small Logger interface below, never a concrete
// logging library.
package logging

import "github.com/go-logr/logr"

// Logger is the narrow contract every component logs through.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

// logrLogger adapts a logr.Logger to Logger.
type logrLogger struct {
	l logr.Logger
}

// FromLogr wraps an existing logr.Logger (e.g. stdr, zapr, whatever the
// process wires up) as a Logger.
func FromLogr(l logr.Logger) Logger {
	return logrLogger{l: l}
}

func (g logrLogger) Info(msg string, keysAndValues ...interface{}) {
	g.l.Info(msg, keysAndValues...)
}

func (g logrLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	g.l.Error(err, msg, keysAndValues...)
}

func (g logrLogger) With(keysAndValues ...interface{}) Logger {
	return logrLogger{l: g.l.WithValues(keysAndValues...)}
}

// NoOp is a Logger that discards everything, used in tests.
func NoOp() Logger {
	return logrLogger{l: logr.Discard()}
}
