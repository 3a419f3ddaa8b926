// Package types defines the shared value types used across all Voxtask packages.
//
// These types form the lingua franca between capability providers, the engine
// state machines, and the reminder scheduler. They are intentionally minimal —
// each package defines its own domain types, but cross-cutting data structures
// live here to avoid circular imports.
package types

import "time"

// Transcript represents a speech-to-text result from a recognition capability.
// Both partial (interim) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript. The engine only acts on finals.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if the
	// provider does not report confidence.
	Confidence float64
}

// Priority is the urgency level of a task draft.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is a recognised priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TaskDraft is the structured result of a completed voice task-creation
// session, handed to the external task store. Title is always non-empty;
// all other fields are optional.
type TaskDraft struct {
	// Title is the task headline. Required — the dialogue re-asks until the
	// user provides one.
	Title string

	// Description is free-form detail. Empty when the user skipped the slot.
	Description string

	// Priority defaults to PriorityMedium when no slot set it explicitly.
	Priority Priority

	// Category groups the task (e.g., "work", "shopping"). Empty when skipped.
	Category string

	// DueDate is the resolved due date at midnight local time. Zero when the
	// user skipped the slot or the phrase could not be resolved.
	DueDate time.Time
}

// DeliveryMode selects how a triggered reminder reaches the user.
type DeliveryMode string

const (
	// DeliverNotification shows a visual notification only.
	DeliverNotification DeliveryMode = "notification"

	// DeliverVoice speaks the reminder only.
	DeliverVoice DeliveryMode = "voice"

	// DeliverBoth speaks and shows a notification.
	DeliverBoth DeliveryMode = "both"
)

// IsValid reports whether m is a recognised delivery mode.
func (m DeliveryMode) IsValid() bool {
	switch m {
	case DeliverNotification, DeliverVoice, DeliverBoth:
		return true
	}
	return false
}

// Reminder is a persisted, time-triggered request to notify the user about a
// task. Reminders reference their task by ID only — the scheduler does not own
// task data.
type Reminder struct {
	// ID uniquely identifies the reminder within the persisted set.
	ID string

	// TaskID is the external task this reminder belongs to. Many reminders may
	// reference the same task.
	TaskID string

	// DueAt is when the reminder should fire.
	DueAt time.Time

	// Mode selects spoken and/or visual delivery.
	Mode DeliveryMode

	// Active is true while the reminder has an outstanding timer. Set to false
	// exactly once, when the reminder triggers. Inactive reminders are retained
	// in the persisted set as history and never rescheduled.
	Active bool
}

// VoiceSettings controls how a synthesis capability renders an utterance.
type VoiceSettings struct {
	// Rate is the speaking rate multiplier (1.0 = normal).
	Rate float64

	// Pitch is the voice pitch multiplier (1.0 = normal).
	Pitch float64

	// Volume is the output volume (0.0–1.0).
	Volume float64
}

// DefaultVoiceSettings returns the neutral settings used when the
// configuration does not override them.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Rate: 1.0, Pitch: 1.0, Volume: 1.0}
}

// ListeningState describes what the engine's recognition session is currently
// doing. Surfaced to the application through the listening-state-changed port.
type ListeningState string

const (
	// ListeningIdle means no recognition session is running.
	ListeningIdle ListeningState = "idle"

	// ListeningForWakeWord means finals are matched against the wake phrase.
	ListeningForWakeWord ListeningState = "waiting_for_wake_word"

	// ListeningActive means finals are forwarded to the active session
	// (dialogue or ad-hoc command handling).
	ListeningActive ListeningState = "active"

	// ListeningDisabled means the recognition capability failed permanently
	// and requires an explicit reset.
	ListeningDisabled ListeningState = "disabled"
)
