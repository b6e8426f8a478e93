package notify

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notifier is the engine's fire-and-forget notification sink. The engine
// never consumes a return value; implementations must not block the caller.
type Notifier interface {
	Notify(title, message string, severity Severity, duration time.Duration)
}

// Log writes notifications to the structured log. This is the default sink
// when no UI collaborator is attached.
type Log struct{}

func (Log) Notify(title, message string, severity Severity, duration time.Duration) {
	entry := log.WithFields(log.Fields{
		"title":    title,
		"severity": severity,
	})
	switch severity {
	case Warning:
		entry.Warn(message)
	case Error:
		entry.Error(message)
	default:
		entry.Info(message)
	}
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(title, message string, severity Severity, duration time.Duration) {
	for _, n := range m {
		if n != nil {
			n.Notify(title, message, severity, duration)
		}
	}
}

// Discard drops everything. Useful in tests and headless runs.
type Discard struct{}

func (Discard) Notify(string, string, Severity, time.Duration) {}
