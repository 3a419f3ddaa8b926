// Package engine wires the Voxtask components into one facade: the control
// surface the surrounding application talks to.
//
// The engine owns the speech output controller, the speech input controller,
// the reminder scheduler, and at most one dialogue session at a time. All
// capabilities are injected at construction; the engine holds no package-level
// state and multiple engines can coexist in one process (useful in tests).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxtask/voxtask/internal/clock"
	"github.com/voxtask/voxtask/internal/engine/dialogue"
	"github.com/voxtask/voxtask/internal/engine/input"
	"github.com/voxtask/voxtask/internal/engine/output"
	"github.com/voxtask/voxtask/internal/engine/reminder"
	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/internal/store"
	"github.com/voxtask/voxtask/pkg/provider/notify"
	"github.com/voxtask/voxtask/pkg/provider/recognition"
	"github.com/voxtask/voxtask/pkg/provider/synthesis"
	"github.com/voxtask/voxtask/pkg/types"
)

// Config holds the engine's tuning knobs plus the embedded component configs.
type Config struct {
	// Input configures the speech input controller.
	Input input.Config

	// Dialogue configures the slot-filling session prompts.
	Dialogue dialogue.Config

	// Voice is passed to every synthesized utterance.
	Voice types.VoiceSettings

	// RevertDelay is how long the engine waits after a dialogue session ends
	// before resuming wake-word listening.
	RevertDelay time.Duration

	// ReminderMode is the delivery mode for reminders created through the
	// dialogue's reminder negotiation.
	ReminderMode types.DeliveryMode
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Input:        input.DefaultConfig(),
		Dialogue:     dialogue.DefaultConfig(),
		Voice:        types.DefaultVoiceSettings(),
		RevertDelay:  time.Second,
		ReminderMode: types.DeliverBoth,
	}
}

// Engine is the voice interaction engine facade.
type Engine struct {
	cfg      Config
	out      *output.Controller
	in       *input.Controller
	sched    *reminder.Scheduler
	notifier notify.Notifier
	clk      clock.Clock
	metrics  *observe.Metrics

	mu            sync.Mutex
	dlg           *dialogue.Session
	pendingRevert bool
	revertTimer   clock.Timer
	taskTitles    map[string]string

	onTaskDraft   func(types.TaskDraft) string
	onWakeWord    func()
	onTranscript  func(string)
	onStateChange func(types.ListeningState)
	onReminder    func(types.Reminder)
}

// Option is a functional option for New.
type Option func(*Engine)

// WithMetrics wires OTel instruments into the engine and every component it
// constructs.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs an Engine around the injected capabilities. Call Start to
// load persisted reminders and begin wake-word listening.
func New(rec recognition.Recognizer, synth synthesis.Synthesizer, notifier notify.Notifier, repo store.ReminderRepository, clk clock.Clock, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		notifier:   notifier,
		clk:        clk,
		taskTitles: make(map[string]string),
	}
	for _, o := range opts {
		o(e)
	}

	e.out = output.NewController(synth, cfg.Voice, output.WithMetrics(e.metrics))
	e.in = input.NewController(rec, e.out, notifier, clk, cfg.Input, input.WithMetrics(e.metrics))
	e.sched = reminder.New(repo, clk, reminder.WithMetrics(e.metrics))

	e.in.OnWakeWord(e.handleWakeWord)
	e.in.OnTranscript(e.handleTranscript)
	e.in.OnListeningStateChange(e.handleStateChange)
	e.sched.OnTrigger(e.handleReminderTrigger)
	return e
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// Start loads the persisted reminder set, arms its timers, and begins
// wake-word listening. Past-due reminders fire during Start.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.sched.Start(ctx); err != nil {
		return fmt.Errorf("engine: start scheduler: %w", err)
	}
	e.in.StartWakeWordListening()
	slog.Info("engine: started", "wake_phrase", e.cfg.Input.WakePhrase)
	return nil
}

// Stop cancels any dialogue session, stops listening, silences output, and
// disarms all reminder timers. The persisted reminder set is untouched.
func (e *Engine) Stop() {
	e.mu.Lock()
	dlg := e.dlg
	e.mu.Unlock()

	if dlg != nil {
		dlg.Cancel()
	}

	e.mu.Lock()
	e.pendingRevert = false
	if e.revertTimer != nil {
		e.revertTimer.Stop()
		e.revertTimer = nil
	}
	e.mu.Unlock()

	e.in.StopListening()
	e.sched.Stop()
	e.out.Cancel()
	slog.Info("engine: stopped")
}

// ─── Control surface ─────────────────────────────────────────────────────────

// StartWakeWordListening begins (or resumes) wake-word listening. Safe to call
// unconditionally.
func (e *Engine) StartWakeWordListening() { e.in.StartWakeWordListening() }

// StopListening cancels any pending retry and stops the recognition session.
func (e *Engine) StopListening() { e.in.StopListening() }

// ResetListening clears the permanently-disabled state, returning input to
// Idle. The only recovery path once listening has been disabled.
func (e *Engine) ResetListening() { e.in.Reset() }

// ListeningState returns the current listening state.
func (e *Engine) ListeningState() types.ListeningState {
	return listeningStateOf(e.in.State().State)
}

// TriggerTaskSession starts a voice task-creation session without a wake
// phrase, e.g. from a button. No-op when a session is already in progress.
func (e *Engine) TriggerTaskSession() {
	e.startSession()
}

// CancelSession cancels the in-progress dialogue session, if any.
func (e *Engine) CancelSession() {
	e.mu.Lock()
	dlg := e.dlg
	e.mu.Unlock()
	if dlg != nil {
		dlg.Cancel()
	}
}

// SessionActive reports whether a dialogue session is in progress.
func (e *Engine) SessionActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dlg != nil
}

// Scheduler exposes the reminder scheduler for direct reminder management
// (listing, removal, updates) by the surrounding application.
func (e *Engine) Scheduler() *reminder.Scheduler { return e.sched }

// ─── Callback registration (single-subscriber ports) ─────────────────────────

// OnTaskDraft installs the task-draft sink. The sink stores the draft in the
// external task list and returns the new task's id, which reminders created
// in the same session will reference. With no sink installed, drafts are
// logged and dropped and no reminder is created.
func (e *Engine) OnTaskDraft(f func(types.TaskDraft) string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTaskDraft = f
}

// OnWakeWord installs the wake-word subscriber, replacing any previous one.
// The engine starts its own dialogue session on wake regardless.
func (e *Engine) OnWakeWord(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onWakeWord = f
}

// OnTranscript installs the subscriber for active-listening finals that no
// dialogue session consumed (ad-hoc command handling).
func (e *Engine) OnTranscript(f func(string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTranscript = f
}

// OnListeningStateChange installs the listening-state subscriber.
func (e *Engine) OnListeningStateChange(f func(types.ListeningState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStateChange = f
}

// OnReminder installs the reminder subscriber. It fires after the engine has
// already delivered the reminder per its mode.
func (e *Engine) OnReminder(f func(types.Reminder)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReminder = f
}

// ─── Input events ────────────────────────────────────────────────────────────

func (e *Engine) handleWakeWord() {
	e.mu.Lock()
	wake := e.onWakeWord
	e.mu.Unlock()
	if wake != nil {
		wake()
	}
	e.startSession()
}

func (e *Engine) handleTranscript(text string) {
	e.mu.Lock()
	dlg := e.dlg
	forward := e.onTranscript
	e.mu.Unlock()

	if dlg != nil {
		dlg.HandleTranscript(text)
		return
	}
	if forward != nil {
		forward(text)
	}
}

func (e *Engine) handleStateChange(state types.ListeningState) {
	e.mu.Lock()
	revert := e.pendingRevert && state == types.ListeningIdle
	if revert {
		e.pendingRevert = false
	}
	forward := e.onStateChange
	e.mu.Unlock()

	if revert {
		e.mu.Lock()
		e.revertTimer = e.clk.AfterFunc(e.cfg.RevertDelay, e.in.StartWakeWordListening)
		e.mu.Unlock()
	}
	if forward != nil {
		forward(state)
	}
}

// ─── Dialogue session lifecycle ──────────────────────────────────────────────

func (e *Engine) startSession() {
	e.mu.Lock()
	if e.dlg != nil {
		e.mu.Unlock()
		slog.Warn("engine: session trigger ignored, dialogue in progress")
		return
	}
	dlg := dialogue.New(
		e.cfg.Dialogue,
		e.out,
		e.clk,
		e.in.StartActiveListening,
		e.handleSessionComplete,
		dialogue.WithMetrics(e.metrics),
		dialogue.WithOnCancel(e.handleSessionCancel),
	)
	e.dlg = dlg
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ActiveDialogues.Add(context.Background(), 1)
	}
	dlg.Start()
}

func (e *Engine) handleSessionComplete(res dialogue.Result) {
	e.endSession()

	e.mu.Lock()
	sink := e.onTaskDraft
	e.mu.Unlock()

	if sink == nil {
		slog.Warn("engine: no task-draft sink installed, dropping draft", "title", res.Draft.Title)
		return
	}
	taskID := sink(res.Draft)

	e.mu.Lock()
	e.taskTitles[taskID] = res.Draft.Title
	e.mu.Unlock()

	if !res.HasReminder {
		return
	}
	if _, err := e.sched.Add(context.Background(), taskID, res.ReminderAt, e.cfg.ReminderMode); err != nil {
		slog.Error("engine: could not schedule reminder", "task_id", taskID, "error", err)
	}
}

func (e *Engine) handleSessionCancel() {
	e.endSession()
}

// endSession discards the dialogue session and marks the input controller for
// revert: once its stop is acknowledged and it reaches Idle, wake-word
// listening resumes after the revert delay.
func (e *Engine) endSession() {
	e.mu.Lock()
	e.dlg = nil
	e.pendingRevert = true
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ActiveDialogues.Add(context.Background(), -1)
	}
	e.in.StopListening()
}

// ─── Reminder delivery ───────────────────────────────────────────────────────

func (e *Engine) handleReminderTrigger(r types.Reminder) {
	e.mu.Lock()
	title := e.taskTitles[r.TaskID]
	forward := e.onReminder
	e.mu.Unlock()

	msg := "You asked me to remind you about a task."
	if title != "" {
		msg = "Reminder: " + title + "."
	}

	if r.Mode == types.DeliverVoice || r.Mode == types.DeliverBoth {
		e.out.Speak(msg, nil)
	}
	if r.Mode == types.DeliverNotification || r.Mode == types.DeliverBoth {
		if err := e.notifier.Show(notify.Notification{Title: "Task reminder", Body: msg}); err != nil {
			slog.Warn("engine: could not show reminder notification", "error", err)
		}
	}
	if forward != nil {
		forward(r)
	}
}

func listeningStateOf(s input.State) types.ListeningState {
	switch s {
	case input.StateWaitingForWakeWord:
		return types.ListeningForWakeWord
	case input.StateActiveListening:
		return types.ListeningActive
	case input.StatePermanentlyDisabled:
		return types.ListeningDisabled
	default:
		return types.ListeningIdle
	}
}
