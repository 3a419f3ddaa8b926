package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxtask/voxtask/internal/store"
	"github.com/voxtask/voxtask/pkg/types"
)

func sampleReminders() []types.Reminder {
	return []types.Reminder{
		{
			ID:     "rem-1",
			TaskID: "task-1",
			DueAt:  time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC),
			Mode:   types.DeliverBoth,
			Active: true,
		},
		{
			ID:     "rem-2",
			TaskID: "task-1",
			DueAt:  time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC),
			Mode:   types.DeliverNotification,
			Active: false,
		},
	}
}

func TestMemStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	if err := s.Save(ctx, sampleReminders()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d reminders, want 2", len(got))
	}
	if got[0].ID != "rem-1" || got[1].Active {
		t.Errorf("loaded set does not round-trip: %+v", got)
	}
}

func TestMemStore_SaveReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	if err := s.Save(ctx, sampleReminders()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, nil); err != nil {
		t.Fatalf("Save(empty): %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("loaded %d reminders after wholesale replace with empty set, want 0", len(got))
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reminders.yaml")
	s := store.NewFileStore(path)

	// Missing file is an empty set, not an error.
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("loaded %d reminders from missing file, want 0", len(got))
	}

	want := sampleReminders()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store reading the same path sees the saved set.
	got, err = store.NewFileStore(path).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d reminders, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !got[i].DueAt.Equal(want[i].DueAt) ||
			got[i].Mode != want[i].Mode || got[i].Active != want[i].Active {
			t.Errorf("reminder %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
