// Package dialogue implements the multi-turn slot-filling state machine that
// turns free-form transcripts into a structured task draft.
//
// A Session asks an ordered, fixed list of question slots one at a time:
// speak the prompt, start active listening, interpret the answer per the
// slot's kind, acknowledge, advance. Required slots are re-asked on skip or
// empty answers; validation failures are never surfaced as errors. After the
// last slot an optional reminder negotiation runs (yes/no, then a time
// phrase). A Session lives for exactly one voice task-creation flow and is
// discarded on completion or cancellation.
package dialogue

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxtask/voxtask/internal/clock"
	"github.com/voxtask/voxtask/internal/engine/output"
	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/pkg/types"
)

// Phase is the reminder negotiation phase appended after the last slot.
type Phase string

const (
	// PhaseSlots means the session is still filling question slots.
	PhaseSlots Phase = "slots"

	// PhaseAwaitingYesNo means the session asked whether to set a reminder.
	PhaseAwaitingYesNo Phase = "awaiting_yes_no"

	// PhaseAwaitingTime means the session asked when to remind.
	PhaseAwaitingTime Phase = "awaiting_time"

	// PhaseResolved means the session has completed or been cancelled.
	PhaseResolved Phase = "resolved"
)

// Result is the immutable outcome of a completed session.
type Result struct {
	// Draft is the collected task. Title is always non-empty.
	Draft types.TaskDraft

	// ReminderAt is the negotiated reminder time; only valid when
	// HasReminder is true.
	ReminderAt time.Time

	// HasReminder reports whether the user asked for a reminder.
	HasReminder bool
}

// Config holds the session's prompts and slot sequence.
type Config struct {
	// Slots is the ordered question sequence.
	Slots []Slot

	// ReminderPrompt asks the yes/no reminder question after the last slot.
	ReminderPrompt string

	// ReminderTimePrompt asks for the reminder time phrase.
	ReminderTimePrompt string

	// ReminderTimeReprompt is spoken when the time phrase cannot be parsed.
	// There is no retry cap here — the session always re-asks.
	ReminderTimeReprompt string

	// SkipAck is spoken when an optional slot is skipped.
	SkipAck string

	// DoneAck is spoken when the session completes.
	DoneAck string

	// CancelAck is spoken when the session is cancelled.
	CancelAck string
}

// DefaultConfig returns the standard prompts with DefaultSlots.
func DefaultConfig() Config {
	return Config{
		Slots:                DefaultSlots(),
		ReminderPrompt:       "Should I remind you about this task?",
		ReminderTimePrompt:   "When should I remind you? You can say things like in twenty minutes, tomorrow at 9, or friday at noon.",
		ReminderTimeReprompt: "Sorry, I didn't catch a time. Try something like in one hour, or tomorrow at 9.",
		SkipAck:              "Okay, skipping that.",
		DoneAck:              "All set, I've added your task.",
		CancelAck:            "Okay, cancelled.",
	}
}

// Session drives one voice task-creation flow. Safe for concurrent use,
// though in practice transcripts arrive serialized from the input controller.
type Session struct {
	cfg     Config
	out     *output.Controller
	clk     clock.Clock
	listen  func()
	metrics *observe.Metrics

	onComplete func(Result)
	onCancel   func()

	mu        sync.Mutex
	slotIndex int
	answers   map[string]string
	dueDate   time.Time
	phase     Phase
	finished  bool
	reasking  bool
}

// Option is a functional option for New.
type Option func(*Session)

// WithMetrics wires OTel instruments into the session.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithOnCancel installs the cancellation callback.
func WithOnCancel(f func()) Option {
	return func(s *Session) { s.onCancel = f }
}

// New creates a Session. listen is invoked each time the session wants the
// next answer captured (after a prompt finishes being spoken); onComplete
// receives the result exactly once when the flow finishes.
func New(cfg Config, out *output.Controller, clk clock.Clock, listen func(), onComplete func(Result), opts ...Option) *Session {
	s := &Session{
		cfg:        cfg,
		out:        out,
		clk:        clk,
		listen:     listen,
		onComplete: onComplete,
		answers:    make(map[string]string),
		phase:      PhaseSlots,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start asks the first slot.
func (s *Session) Start() {
	slog.Info("dialogue: session started", "slots", len(s.cfg.Slots))
	s.ask()
}

// Phase returns the current negotiation phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Answer returns the collected value for a slot field, if set.
func (s *Session) Answer(field string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.answers[field]
	return v, ok
}

// HandleTranscript consumes the next final transcript. Answers are normalized
// to lower-case trimmed text before branching.
func (s *Session) HandleTranscript(text string) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	text = strings.ToLower(strings.TrimSpace(text))

	switch s.phase {
	case PhaseAwaitingYesNo:
		s.handleReminderChoiceLocked(text)
	case PhaseAwaitingTime:
		s.handleReminderTimeLocked(text)
	default:
		s.handleSlotAnswerLocked(text)
	}
}

// Cancel ends the session from any state: it speaks the cancellation
// acknowledgement, discards the collected state, and notifies the engine so
// control returns to wake-word listening.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.phase = PhaseResolved
	onCancel := s.onCancel
	s.mu.Unlock()

	slog.Info("dialogue: session cancelled")
	s.recordOutcome("cancelled")
	s.out.Speak(s.cfg.CancelAck, nil)
	if onCancel != nil {
		onCancel()
	}
}

// ─── Slot flow ───────────────────────────────────────────────────────────────

// ask speaks the current slot's prompt (or corrective reprompt) and starts
// listening once the prompt has finished.
func (s *Session) ask() {
	s.mu.Lock()
	if s.finished || s.slotIndex >= len(s.cfg.Slots) {
		s.mu.Unlock()
		return
	}
	slot := s.cfg.Slots[s.slotIndex]
	prompt := slot.Prompt
	if s.reasking && slot.Reprompt != "" {
		prompt = slot.Reprompt
	}
	s.reasking = false
	s.mu.Unlock()

	s.out.Speak(prompt, s.listen)
}

func (s *Session) handleSlotAnswerLocked(text string) {
	slot := s.cfg.Slots[s.slotIndex]

	if IsSkip(text) {
		if slot.Required {
			// The one conditional reject in the otherwise linear flow.
			s.reasking = true
			s.mu.Unlock()
			slog.Debug("dialogue: required slot skipped, re-asking", "slot", slot.ID)
			if s.metrics != nil {
				s.metrics.SlotReasks.Add(context.Background(), 1)
			}
			s.ask()
			return
		}
		s.advanceLocked(s.cfg.SkipAck)
		return
	}

	switch slot.Kind {
	case KindEnumerated:
		value := ResolveOption(text, slot.Options, slot.Fallback)
		s.answers[slot.Field] = value
		s.advanceLocked(slot.Ack + " " + value + ".")

	case KindDate:
		due, ok := ResolveDatePhrase(text, s.clk.Now())
		if !ok {
			// Unresolvable phrases leave the field unset.
			s.advanceLocked(s.cfg.SkipAck)
			return
		}
		s.dueDate = due
		s.answers[slot.Field] = due.Format("2006-01-02")
		s.advanceLocked(slot.Ack + " " + due.Format("Monday, January 2") + ".")

	default:
		s.answers[slot.Field] = text
		s.advanceLocked(slot.Ack + " " + text + ".")
	}
}

// advanceLocked stores nothing itself — it moves to the next slot (or the
// reminder question), speaking ack first. Called with the mutex held;
// releases it.
func (s *Session) advanceLocked(ack string) {
	s.slotIndex++
	if s.slotIndex < len(s.cfg.Slots) {
		s.mu.Unlock()
		s.out.Speak(ack, s.ask)
		return
	}

	s.phase = PhaseAwaitingYesNo
	s.mu.Unlock()
	s.out.Speak(ack, func() {
		s.out.Speak(s.cfg.ReminderPrompt, s.listen)
	})
}

// ─── Reminder negotiation ────────────────────────────────────────────────────

func (s *Session) handleReminderChoiceLocked(text string) {
	if IsYes(text) {
		s.phase = PhaseAwaitingTime
		s.mu.Unlock()
		s.out.Speak(s.cfg.ReminderTimePrompt, s.listen)
		return
	}
	// No, skip, or anything non-affirmative finishes without a reminder.
	s.completeLocked(Result{})
}

func (s *Session) handleReminderTimeLocked(text string) {
	at, ok := ParseTimePhrase(text, s.clk.Now())
	if !ok {
		s.mu.Unlock()
		slog.Debug("dialogue: unparsable reminder time, re-asking", "answer", text)
		s.out.Speak(s.cfg.ReminderTimeReprompt, s.listen)
		return
	}
	s.completeLocked(Result{ReminderAt: at, HasReminder: true})
}

// ─── Completion ──────────────────────────────────────────────────────────────

// completeLocked finishes the session, yielding the immutable task draft.
// Called with the mutex held; releases it.
func (s *Session) completeLocked(res Result) {
	s.finished = true
	s.phase = PhaseResolved
	res.Draft = s.buildDraftLocked()
	s.mu.Unlock()

	slog.Info("dialogue: session complete",
		"title", res.Draft.Title,
		"priority", res.Draft.Priority,
		"has_reminder", res.HasReminder,
	)
	s.recordOutcome("completed")
	s.out.Speak(s.cfg.DoneAck, nil)
	if s.onComplete != nil {
		s.onComplete(res)
	}
}

func (s *Session) buildDraftLocked() types.TaskDraft {
	draft := types.TaskDraft{
		Title:       s.answers["title"],
		Description: s.answers["description"],
		Category:    s.answers["category"],
		Priority:    types.PriorityMedium,
		DueDate:     s.dueDate,
	}
	if p, ok := s.answers["priority"]; ok {
		draft.Priority = types.Priority(p)
	}
	return draft
}

func (s *Session) recordOutcome(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.DialogueSessions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
