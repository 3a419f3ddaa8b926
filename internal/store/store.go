// Package store defines the reminder repository abstraction and its
// non-database implementations.
//
// The scheduler persists its reminder set wholesale on every mutation: the
// repository always receives the complete ordered set and replaces whatever
// it held before. This keeps the persistence contract trivial and makes the
// stored data self-contained across restarts.
package store

import (
	"context"

	"github.com/voxtask/voxtask/pkg/types"
)

// ReminderRepository persists the reminder set.
//
// Implementations must be safe for concurrent use.
type ReminderRepository interface {
	// Load returns the full persisted reminder set, active and inactive.
	// An empty (or missing) store yields an empty slice and no error.
	Load(ctx context.Context) ([]types.Reminder, error)

	// Save replaces the persisted set with reminders, wholesale.
	Save(ctx context.Context, reminders []types.Reminder) error
}
