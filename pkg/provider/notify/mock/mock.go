// Package mock provides an in-memory implementation of [notify.Notifier]
// for use in unit tests.
package mock

import (
	"sync"

	"github.com/voxtask/voxtask/pkg/provider/notify"
)

// Notifier records every notification shown.
type Notifier struct {
	mu sync.Mutex

	// ShowError is returned by Show when non-nil.
	ShowError error

	// Shown holds every notification passed to Show, in order.
	Shown []notify.Notification
}

var _ notify.Notifier = (*Notifier)(nil)

// Show records n and returns ShowError.
func (m *Notifier) Show(n notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Shown = append(m.Shown, n)
	return m.ShowError
}

// Count returns how many notifications were shown.
func (m *Notifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Shown)
}
