package store

import (
	"context"
	"sync"

	"github.com/voxtask/voxtask/pkg/types"
)

// MemStore is an in-memory ReminderRepository for tests and ephemeral runs.
// Safe for concurrent use.
type MemStore struct {
	mu        sync.Mutex
	reminders []types.Reminder

	// SaveError, when non-nil, is returned by Save. Lets tests exercise
	// persistence failure paths.
	SaveError error
}

var _ ReminderRepository = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a copy of the stored set.
func (m *MemStore) Load(_ context.Context) ([]types.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Reminder, len(m.reminders))
	copy(out, m.reminders)
	return out, nil
}

// Save replaces the stored set with a copy of reminders.
func (m *MemStore) Save(_ context.Context, reminders []types.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.reminders = make([]types.Reminder, len(reminders))
	copy(m.reminders, reminders)
	return nil
}
