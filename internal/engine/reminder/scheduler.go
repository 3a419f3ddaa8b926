// Package reminder implements the reminder scheduler: persistence-backed,
// restart-safe, at-most-once delivery of time-triggered reminders.
//
// Every active reminder has exactly one outstanding timer. Triggering marks
// the reminder inactive and persists the change before the callback runs, so
// a crash between trigger and callback loses the delivery rather than
// duplicating it. On startup, Start reconstitutes timers for every persisted
// active reminder; anything already past due fires immediately. Inactive
// reminders are retained purely as history and never rescheduled.
package reminder

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxtask/voxtask/internal/clock"
	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/internal/store"
	"github.com/voxtask/voxtask/pkg/types"
)

// Scheduler owns the reminder set. Safe for concurrent use; the reminder
// records are mutated only through its methods.
type Scheduler struct {
	repo    store.ReminderRepository
	clk     clock.Clock
	metrics *observe.Metrics

	mu        sync.Mutex
	reminders []types.Reminder
	timers    map[string]clock.Timer
	onTrigger func(types.Reminder)
}

// Option is a functional option for New.
type Option func(*Scheduler)

// WithMetrics wires OTel instruments into the scheduler.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a Scheduler. Call Start to load persisted reminders and arm
// their timers.
func New(repo store.ReminderRepository, clk clock.Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:   repo,
		clk:    clk,
		timers: make(map[string]clock.Timer),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnTrigger installs the single trigger subscriber, replacing any previous
// one. The callback receives the already-deactivated reminder; the associated
// task is looked up externally by the caller.
func (s *Scheduler) OnTrigger(f func(types.Reminder)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTrigger = f
}

// Start loads the persisted reminder set and reschedules every active
// reminder. Past-due reminders fire immediately, exactly once.
func (s *Scheduler) Start(ctx context.Context) error {
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("reminder: load persisted set: %w", err)
	}

	s.mu.Lock()
	s.reminders = loaded
	var due []string
	for _, r := range loaded {
		if !r.Active {
			continue
		}
		if d := r.DueAt.Sub(s.clk.Now()); d > 0 {
			s.scheduleLocked(r.ID, d)
		} else {
			due = append(due, r.ID)
		}
	}
	s.mu.Unlock()

	slog.Info("reminder: scheduler started",
		"persisted", len(loaded),
		"past_due", len(due),
	)

	for _, id := range due {
		s.trigger(ctx, id)
	}
	return nil
}

// Stop cancels all outstanding timers without touching the persisted set.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Add creates an active reminder for taskID due at dueAt and persists the
// set. A dueAt at or before now triggers synchronously, identically to a
// timer firing at time zero.
func (s *Scheduler) Add(ctx context.Context, taskID string, dueAt time.Time, mode types.DeliveryMode) (types.Reminder, error) {
	if !mode.IsValid() {
		return types.Reminder{}, fmt.Errorf("reminder: invalid delivery mode %q", mode)
	}

	r := types.Reminder{
		ID:     newID(),
		TaskID: taskID,
		DueAt:  dueAt,
		Mode:   mode,
		Active: true,
	}

	s.mu.Lock()
	s.reminders = append(s.reminders, r)
	if err := s.persistLocked(ctx); err != nil {
		s.reminders = s.reminders[:len(s.reminders)-1]
		s.mu.Unlock()
		return types.Reminder{}, err
	}
	d := dueAt.Sub(s.clk.Now())
	if d > 0 {
		s.scheduleLocked(r.ID, d)
	}
	s.mu.Unlock()

	slog.Info("reminder: added", "id", r.ID, "task_id", taskID, "due_at", dueAt, "mode", mode)
	if s.metrics != nil {
		s.metrics.RemindersScheduled.Add(ctx, 1)
	}

	if d <= 0 {
		s.trigger(ctx, r.ID)
	}
	return r, nil
}

// Remove cancels the pending timer and deletes the record. Removing a
// reminder that has already triggered (or never existed) is a no-op.
func (s *Scheduler) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 || !s.reminders[idx].Active {
		s.mu.Unlock()
		return nil
	}
	s.cancelTimerLocked(id)
	s.reminders = append(s.reminders[:idx], s.reminders[idx+1:]...)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	slog.Info("reminder: removed", "id", id)
	return nil
}

// Update is a partial update to one reminder. Nil fields are left unchanged.
type Update struct {
	DueAt  *time.Time
	Mode   *types.DeliveryMode
	Active *bool
}

// UpdateReminder applies updates to the reminder with the given id,
// cancelling and rescheduling its timer if it remains active afterwards.
func (s *Scheduler) UpdateReminder(ctx context.Context, id string, updates Update) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("reminder: %q not found", id)
	}

	r := s.reminders[idx]
	if updates.DueAt != nil {
		r.DueAt = *updates.DueAt
	}
	if updates.Mode != nil {
		r.Mode = *updates.Mode
	}
	if updates.Active != nil {
		r.Active = *updates.Active
	}
	s.reminders[idx] = r

	s.cancelTimerLocked(id)
	var fireNow bool
	if r.Active {
		if d := r.DueAt.Sub(s.clk.Now()); d > 0 {
			s.scheduleLocked(id, d)
		} else {
			fireNow = true
		}
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if fireNow {
		s.trigger(ctx, id)
	}
	return nil
}

// Reminders returns a snapshot of the full set, active and inactive.
func (s *Scheduler) Reminders() []types.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

// ─── Trigger path ────────────────────────────────────────────────────────────

// trigger fires the reminder with the given id at most once: it flips
// active to false, persists, then invokes the subscriber.
func (s *Scheduler) trigger(ctx context.Context, id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 || !s.reminders[idx].Active {
		s.mu.Unlock()
		return
	}
	s.reminders[idx].Active = false
	delete(s.timers, id)
	r := s.reminders[idx]
	if err := s.persistLocked(ctx); err != nil {
		slog.Error("reminder: could not persist trigger", "id", id, "error", err)
	}
	callback := s.onTrigger
	s.mu.Unlock()

	slog.Info("reminder: triggered", "id", id, "task_id", r.TaskID, "mode", r.Mode)
	if s.metrics != nil {
		s.metrics.RemindersFired.Add(ctx, 1,
			metric.WithAttributes(attribute.String("mode", string(r.Mode))))
	}
	if callback != nil {
		callback(r)
	}
}

// ─── Internals ───────────────────────────────────────────────────────────────

func (s *Scheduler) scheduleLocked(id string, d time.Duration) {
	s.timers[id] = s.clk.AfterFunc(d, func() {
		s.trigger(context.Background(), id)
	})
}

func (s *Scheduler) cancelTimerLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) indexLocked(id string) int {
	for i, r := range s.reminders {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Scheduler) persistLocked(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.reminders); err != nil {
		return fmt.Errorf("reminder: persist set: %w", err)
	}
	return nil
}

func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return "rem-" + hex.EncodeToString(b[:])
}
