// Package feedback delivers fire-and-forget user feedback cues. Safety
// rejections must always reach the user through every registered channel
// (flash, vibration, sound) because the mistake they prevent moves real money.
package feedback

import "log"

// Severity tags a feedback event.
type Severity string

const (
	SeveritySuccess      Severity = "success"
	SeveritySafetyError  Severity = "safety-error"
	SeverityGenericError Severity = "generic-error"
)

// Notifier receives a feedback cue. Implementations bridge to haptics,
// audio and overlay channels; errors are not reported back.
type Notifier interface {
	Notify(severity Severity, message string)
}

// Dispatcher fans a cue out to every registered notifier.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Notify delivers the cue to all channels, fire-and-forget.
func (d *Dispatcher) Notify(severity Severity, message string) {
	for _, n := range d.notifiers {
		n.Notify(severity, message)
	}
}

// LogNotifier is the default channel when no device hooks are wired.
type LogNotifier struct{}

func (LogNotifier) Notify(severity Severity, message string) {
	log.Printf("feedback [%s]: %s", severity, message)
}
