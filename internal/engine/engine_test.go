package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voxtask/voxtask/internal/clock"
	"github.com/voxtask/voxtask/internal/engine"
	"github.com/voxtask/voxtask/internal/store"
	notifymock "github.com/voxtask/voxtask/pkg/provider/notify/mock"
	recmock "github.com/voxtask/voxtask/pkg/provider/recognition/mock"
	synthmock "github.com/voxtask/voxtask/pkg/provider/synthesis/mock"
	"github.com/voxtask/voxtask/pkg/types"
)

// Tuesday morning.
var start = time.Date(2024, 6, 4, 10, 30, 0, 0, time.Local)

type fixture struct {
	eng      *engine.Engine
	rec      *recmock.Recognizer
	synth    *synthmock.Synthesizer
	notifier *notifymock.Notifier
	repo     *store.MemStore
	clk      *clock.Fake
	drafts   []types.TaskDraft
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rec:      &recmock.Recognizer{},
		synth:    &synthmock.Synthesizer{},
		notifier: &notifymock.Notifier{},
		repo:     store.NewMemStore(),
		clk:      clock.NewFake(start),
	}
	f.eng = engine.New(f.rec, f.synth, f.notifier, f.repo, f.clk, engine.DefaultConfig())
	f.eng.OnTaskDraft(func(d types.TaskDraft) string {
		f.drafts = append(f.drafts, d)
		return "task-1"
	})
	if err := f.eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.rec.EmitStart()
	return f
}

// answer feeds one final transcript as the user's reply.
func (f *fixture) answer(text string) {
	f.rec.EmitFinal(text, 0.9)
}

func TestEngine_WakeToTaskWithReminder(t *testing.T) {
	f := newFixture(t)

	if got := f.eng.ListeningState(); got != types.ListeningForWakeWord {
		t.Fatalf("listening state = %v, want waiting for wake word", got)
	}

	f.answer("well, Hi Voice there")
	if !f.eng.SessionActive() {
		t.Fatal("wake phrase did not start a dialogue session")
	}
	if f.synth.Spoken[0] != "Yes? I'm listening." {
		t.Fatalf("first utterance = %q, want the wake acknowledgement", f.synth.Spoken[0])
	}

	f.answer("Buy milk")
	f.answer("skip")
	f.answer("I'd say high priority")
	f.answer("skip")
	f.answer("tomorrow")
	f.answer("yes")
	f.answer("in twenty minutes")

	if f.eng.SessionActive() {
		t.Fatal("session still active after completion")
	}
	if len(f.drafts) != 1 {
		t.Fatalf("sank %d drafts, want 1", len(f.drafts))
	}
	draft := f.drafts[0]
	if draft.Title != "buy milk" {
		t.Errorf("Title = %q, want %q", draft.Title, "buy milk")
	}
	if draft.Priority != types.PriorityHigh {
		t.Errorf("Priority = %q, want high", draft.Priority)
	}
	if draft.Description != "" || draft.Category != "" {
		t.Errorf("Description/Category = %q/%q, want both unset", draft.Description, draft.Category)
	}
	wantDue := time.Date(2024, 6, 5, 0, 0, 0, 0, time.Local)
	if !draft.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", draft.DueDate, wantDue)
	}

	// The engine stops active listening; once the recognizer acknowledges the
	// stop, wake listening resumes after the revert delay.
	f.rec.EmitEnd()
	f.clk.Advance(time.Second)
	f.rec.EmitStart()
	if got := f.eng.ListeningState(); got != types.ListeningForWakeWord {
		t.Errorf("listening state after revert = %v, want waiting for wake word", got)
	}

	// The negotiated reminder fires 20 minutes in: spoken plus notification.
	spokenBefore := len(f.synth.Spoken)
	f.clk.Advance(20 * time.Minute)
	if len(f.synth.Spoken) != spokenBefore+1 || !strings.Contains(f.synth.Last(), "buy milk") {
		t.Errorf("reminder utterance = %q, want task title spoken", f.synth.Last())
	}
	if f.notifier.Count() != 1 {
		t.Errorf("showed %d notifications, want 1", f.notifier.Count())
	}

	persisted, _ := f.repo.Load(context.Background())
	if len(persisted) != 1 || persisted[0].Active {
		t.Errorf("persisted reminders = %+v, want one inactive record", persisted)
	}
}

func TestEngine_TriggerWithoutWakePhrase(t *testing.T) {
	f := newFixture(t)

	f.eng.TriggerTaskSession()
	if !f.eng.SessionActive() {
		t.Fatal("TriggerTaskSession did not start a session")
	}
	if f.synth.Last() != "What should the task be called?" {
		t.Errorf("last utterance = %q, want the title prompt", f.synth.Last())
	}

	// A second trigger while the session runs is ignored.
	f.eng.TriggerTaskSession()
	if !f.eng.SessionActive() {
		t.Fatal("second trigger tore down the running session")
	}
}

func TestEngine_CancelSessionRevertsToWakeListening(t *testing.T) {
	f := newFixture(t)

	f.eng.TriggerTaskSession()
	f.eng.CancelSession()

	if f.eng.SessionActive() {
		t.Fatal("session still active after cancel")
	}
	if f.synth.Last() != "Okay, cancelled." {
		t.Errorf("last utterance = %q, want the cancel acknowledgement", f.synth.Last())
	}
	if len(f.drafts) != 0 {
		t.Errorf("cancelled session sank %d drafts", len(f.drafts))
	}

	f.rec.EmitEnd()
	f.clk.Advance(time.Second)
	f.rec.EmitStart()
	if got := f.eng.ListeningState(); got != types.ListeningForWakeWord {
		t.Errorf("listening state after cancel = %v, want waiting for wake word", got)
	}

	// Cancelling again with no session is a no-op.
	f.eng.CancelSession()
}

func TestEngine_CompletionWithoutReminder(t *testing.T) {
	f := newFixture(t)

	f.eng.TriggerTaskSession()
	f.answer("water the plants")
	f.answer("skip")
	f.answer("low")
	f.answer("personal")
	f.answer("skip")
	f.answer("no")

	if len(f.drafts) != 1 {
		t.Fatalf("sank %d drafts, want 1", len(f.drafts))
	}
	if f.drafts[0].Priority != types.PriorityLow || f.drafts[0].Category != "personal" {
		t.Errorf("draft = %+v, want low priority in personal", f.drafts[0])
	}
	if len(f.eng.Scheduler().Reminders()) != 0 {
		t.Errorf("reminder created despite the user declining")
	}
}

func TestEngine_PastDueReminderFiresOnStart(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemStore()
	seed := []types.Reminder{{
		ID:     "rem-old",
		TaskID: "task-9",
		DueAt:  start.Add(-5 * time.Minute),
		Mode:   types.DeliverNotification,
		Active: true,
	}}
	if err := repo.Save(ctx, seed); err != nil {
		t.Fatalf("seed repo: %v", err)
	}

	notifier := &notifymock.Notifier{}
	eng := engine.New(&recmock.Recognizer{}, &synthmock.Synthesizer{}, notifier, repo, clock.NewFake(start), engine.DefaultConfig())
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if notifier.Count() != 1 {
		t.Fatalf("showed %d notifications on start, want 1", notifier.Count())
	}
	persisted, _ := repo.Load(ctx)
	if persisted[0].Active {
		t.Error("past-due reminder still active after firing on start")
	}
}

func TestEngine_StopSilencesEverything(t *testing.T) {
	f := newFixture(t)

	if _, err := f.eng.Scheduler().Add(context.Background(), "task-1", start.Add(time.Hour), types.DeliverVoice); err != nil {
		t.Fatalf("Add: %v", err)
	}

	f.eng.Stop()
	f.rec.EmitEnd()

	spokenBefore := len(f.synth.Spoken)
	f.clk.Advance(2 * time.Hour)
	if len(f.synth.Spoken) != spokenBefore {
		t.Errorf("stopped engine spoke %d more utterances", len(f.synth.Spoken)-spokenBefore)
	}
	if f.rec.Running() {
		t.Error("recognizer still running after Stop")
	}
}
