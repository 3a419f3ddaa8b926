package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/voxtask/voxtask/internal/clock"
	"github.com/voxtask/voxtask/internal/engine/reminder"
	"github.com/voxtask/voxtask/internal/store"
	"github.com/voxtask/voxtask/pkg/types"
)

var start = time.Date(2024, 6, 4, 10, 30, 0, 0, time.UTC)

type fixture struct {
	sched     *reminder.Scheduler
	repo      *store.MemStore
	clk       *clock.Fake
	triggered []types.Reminder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: store.NewMemStore(),
		clk:  clock.NewFake(start),
	}
	f.sched = reminder.New(f.repo, f.clk)
	f.sched.OnTrigger(func(r types.Reminder) {
		f.triggered = append(f.triggered, r)
	})
	return f
}

func TestScheduler_FiresAtDueTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.sched.Add(ctx, "task-1", start.Add(time.Hour), types.DeliverVoice)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	f.clk.Advance(59 * time.Minute)
	if len(f.triggered) != 0 {
		t.Fatalf("triggered %d reminders before due time", len(f.triggered))
	}

	f.clk.Advance(time.Minute)
	if len(f.triggered) != 1 {
		t.Fatalf("triggered %d reminders, want 1", len(f.triggered))
	}
	if f.triggered[0].ID != r.ID || f.triggered[0].Active {
		t.Errorf("triggered reminder = %+v, want id %s with active=false", f.triggered[0], r.ID)
	}

	// Advancing further must not re-fire it.
	f.clk.Advance(24 * time.Hour)
	if len(f.triggered) != 1 {
		t.Errorf("reminder fired %d times, want exactly 1", len(f.triggered))
	}

	persisted, _ := f.repo.Load(ctx)
	if len(persisted) != 1 || persisted[0].Active {
		t.Errorf("persisted set = %+v, want one inactive reminder", persisted)
	}
}

func TestScheduler_PastDueFiresImmediately(t *testing.T) {
	f := newFixture(t)

	r, err := f.sched.Add(context.Background(), "task-1", start.Add(-time.Minute), types.DeliverNotification)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if len(f.triggered) != 1 || f.triggered[0].ID != r.ID {
		t.Fatalf("past-due reminder did not fire synchronously: triggered=%v", f.triggered)
	}
	if f.clk.Pending() != 0 {
		t.Errorf("%d timers pending after synchronous trigger, want 0", f.clk.Pending())
	}
}

func TestScheduler_RemoveCancelsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.sched.Add(ctx, "task-1", start.Add(time.Hour), types.DeliverBoth)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := f.sched.Remove(ctx, r.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	f.clk.Advance(2 * time.Hour)
	if len(f.triggered) != 0 {
		t.Errorf("removed reminder fired %d times", len(f.triggered))
	}

	persisted, _ := f.repo.Load(ctx)
	if len(persisted) != 0 {
		t.Errorf("persisted set has %d reminders after remove, want 0", len(persisted))
	}

	// Removing again, or removing an unknown id, is a no-op.
	if err := f.sched.Remove(ctx, r.ID); err != nil {
		t.Errorf("Remove of already-removed id: %v", err)
	}
	if err := f.sched.Remove(ctx, "rem-nope"); err != nil {
		t.Errorf("Remove of unknown id: %v", err)
	}
}

func TestScheduler_UpdateReschedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.sched.Add(ctx, "task-1", start.Add(time.Hour), types.DeliverVoice)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	later := start.Add(3 * time.Hour)
	if err := f.sched.UpdateReminder(ctx, r.ID, reminder.Update{DueAt: &later}); err != nil {
		t.Fatalf("UpdateReminder: %v", err)
	}

	f.clk.Advance(2 * time.Hour)
	if len(f.triggered) != 0 {
		t.Fatalf("reminder fired at original due time after reschedule")
	}
	f.clk.Advance(time.Hour)
	if len(f.triggered) != 1 {
		t.Fatalf("rescheduled reminder fired %d times, want 1", len(f.triggered))
	}
}

func TestScheduler_UpdateUnknownID(t *testing.T) {
	f := newFixture(t)
	if err := f.sched.UpdateReminder(context.Background(), "rem-nope", reminder.Update{}); err == nil {
		t.Fatal("UpdateReminder of unknown id returned nil error")
	}
}

func TestScheduler_StartReconstitutesPersistedSet(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemStore()
	seed := []types.Reminder{
		{ID: "rem-a", TaskID: "task-1", DueAt: start.Add(time.Hour), Mode: types.DeliverVoice, Active: true},
		{ID: "rem-b", TaskID: "task-2", DueAt: start.Add(-time.Hour), Mode: types.DeliverNotification, Active: true},
		{ID: "rem-c", TaskID: "task-3", DueAt: start.Add(-2 * time.Hour), Mode: types.DeliverBoth, Active: false},
	}
	if err := repo.Save(ctx, seed); err != nil {
		t.Fatalf("seed repo: %v", err)
	}

	clk := clock.NewFake(start)
	sched := reminder.New(repo, clk)
	var triggered []types.Reminder
	sched.OnTrigger(func(r types.Reminder) { triggered = append(triggered, r) })

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// rem-b was past due and still active: fires during Start. rem-c is
	// history and stays untouched.
	if len(triggered) != 1 || triggered[0].ID != "rem-b" {
		t.Fatalf("triggered on start = %v, want exactly rem-b", triggered)
	}

	clk.Advance(time.Hour)
	if len(triggered) != 2 || triggered[1].ID != "rem-a" {
		t.Fatalf("triggered after advance = %v, want rem-b then rem-a", triggered)
	}

	persisted, _ := repo.Load(ctx)
	if len(persisted) != 3 {
		t.Fatalf("persisted %d reminders, want 3 (inactive history retained)", len(persisted))
	}
	for _, r := range persisted {
		if r.Active {
			t.Errorf("reminder %s still active after all triggers", r.ID)
		}
	}
}

func TestScheduler_AddRejectsInvalidMode(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sched.Add(context.Background(), "task-1", start.Add(time.Hour), types.DeliveryMode("carrier-pigeon")); err == nil {
		t.Fatal("Add with invalid mode returned nil error")
	}
}

func TestScheduler_AddRollsBackOnPersistFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.SaveError = context.DeadlineExceeded

	if _, err := f.sched.Add(ctx, "task-1", start.Add(time.Hour), types.DeliverVoice); err == nil {
		t.Fatal("Add with failing repo returned nil error")
	}
	if len(f.sched.Reminders()) != 0 {
		t.Errorf("scheduler kept reminder after persist failure")
	}
	if f.clk.Pending() != 0 {
		t.Errorf("%d timers pending after failed Add, want 0", f.clk.Pending())
	}
}

func TestScheduler_StopCancelsTimers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.sched.Add(ctx, "task-1", start.Add(time.Hour), types.DeliverVoice); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.sched.Add(ctx, "task-2", start.Add(2*time.Hour), types.DeliverVoice); err != nil {
		t.Fatalf("Add: %v", err)
	}

	f.sched.Stop()
	f.clk.Advance(3 * time.Hour)
	if len(f.triggered) != 0 {
		t.Errorf("stopped scheduler fired %d reminders", len(f.triggered))
	}
}

func TestSuggest(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 30, 0, 0, time.UTC)

	t.Run("with due date", func(t *testing.T) {
		due := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
		got := reminder.Suggest(due, now)
		if len(got) != 2 {
			t.Fatalf("Suggest returned %d candidates, want 2", len(got))
		}
		wantFirst := time.Date(2024, 6, 9, 9, 0, 0, 0, time.UTC)
		if !got[0].Equal(wantFirst) {
			t.Errorf("first suggestion = %v, want day before at 9:00 (%v)", got[0], wantFirst)
		}
		if !got[1].Equal(due.Add(-time.Hour)) {
			t.Errorf("second suggestion = %v, want one hour before due", got[1])
		}
	})

	t.Run("without due date", func(t *testing.T) {
		got := reminder.Suggest(time.Time{}, now)
		if len(got) != 2 {
			t.Fatalf("Suggest returned %d candidates, want 2", len(got))
		}
		wantFirst := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
		if !got[0].Equal(wantFirst) {
			t.Errorf("first suggestion = %v, want tomorrow at 9:00 (%v)", got[0], wantFirst)
		}
		if !got[1].Equal(now.AddDate(0, 0, 7)) {
			t.Errorf("second suggestion = %v, want one week out", got[1])
		}
	})
}
