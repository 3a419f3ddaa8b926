// Package notify defines the Notifier interface for surfacing visual
// notifications and alerts to the user.
//
// The engine uses a Notifier in two places: triggered reminders with a
// notification delivery mode, and the one-shot alert raised when the
// recognition capability is permanently disabled.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Notification is one visual message shown to the user.
type Notification struct {
	// Title is the notification headline.
	Title string

	// Body is the detail text.
	Body string

	// OnClick, when non-nil, runs if the user activates the notification.
	// Implementations without click support may ignore it.
	OnClick func()
}

// Notifier is the abstraction over any notification surface.
type Notifier interface {
	// Show displays n. Returns an error when the surface is unavailable.
	Show(n Notification) error
}

// Console is a Notifier that writes notifications to an io.Writer. Used by
// the demo shell; OnClick is ignored.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Console notifier writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Show writes the notification as a single line.
func (c *Console) Show(n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "🔔 %s — %s\n", n.Title, n.Body)
	return err
}
