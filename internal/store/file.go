package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voxtask/voxtask/pkg/types"
)

// reminderRecord is the on-disk shape of one reminder. DueAt is stored as an
// ISO timestamp so the file stays readable and editable by hand.
type reminderRecord struct {
	ID     string `yaml:"id"`
	TaskID string `yaml:"task_id"`
	DueAt  string `yaml:"due_at"`
	Mode   string `yaml:"mode"`
	Active bool   `yaml:"active"`
}

// FileStore is a ReminderRepository backed by a single YAML file. Used by the
// demo shell when no database is configured. Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ ReminderRepository = (*FileStore)(nil)

// NewFileStore returns a FileStore writing to path. The file is created on
// the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the full reminder set. A missing file is an empty set.
func (f *FileStore) Load(_ context.Context) ([]types.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %q: %w", f.path, err)
	}

	var records []reminderRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: decode %q: %w", f.path, err)
	}

	reminders := make([]types.Reminder, 0, len(records))
	for _, r := range records {
		dueAt, err := time.Parse(time.RFC3339, r.DueAt)
		if err != nil {
			return nil, fmt.Errorf("store: reminder %q has invalid due_at %q: %w", r.ID, r.DueAt, err)
		}
		reminders = append(reminders, types.Reminder{
			ID:     r.ID,
			TaskID: r.TaskID,
			DueAt:  dueAt,
			Mode:   types.DeliveryMode(r.Mode),
			Active: r.Active,
		})
	}
	return reminders, nil
}

// Save encodes and atomically replaces the full reminder set.
func (f *FileStore) Save(_ context.Context, reminders []types.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records := make([]reminderRecord, 0, len(reminders))
	for _, r := range reminders {
		records = append(records, reminderRecord{
			ID:     r.ID,
			TaskID: r.TaskID,
			DueAt:  r.DueAt.Format(time.RFC3339),
			Mode:   string(r.Mode),
			Active: r.Active,
		})
	}

	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("store: encode reminders: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("store: replace %q: %w", f.path, err)
	}
	return nil
}
