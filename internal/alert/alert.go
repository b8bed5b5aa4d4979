// Package alert surfaces user-facing notifications.
package alert

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a notification.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Console writes notifications to a terminal stream.
type Console struct {
	Out io.Writer
}

// NewConsole returns a notifier writing to stderr.
func NewConsole() *Console {
	return &Console{Out: os.Stderr}
}

func (c *Console) Notify(level Level, message string) {
	switch level {
	case Warn:
		fmt.Fprintf(c.Out, "Warning: %s\n", message)
	case Error:
		fmt.Fprintf(c.Out, "Error: %s\n", message)
	default:
		fmt.Fprintln(c.Out, message)
	}
}

// Alert is a notification captured by a Recorder.
type Alert struct {
	Level   Level
	Message string
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, Alert{Level: level, Message: message})
}

// Alerts returns a copy of the recorded notifications.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}
