package input

import "github.com/voxtask/voxtask/pkg/provider/recognition"

// State is the lifecycle state of the single recognition session.
type State string

const (
	// StateIdle means no session is running and none is wanted.
	StateIdle State = "idle"

	// StateWaitingForWakeWord means finals are matched against the wake phrase.
	StateWaitingForWakeWord State = "waiting_for_wake_word"

	// StateActiveListening means finals are forwarded to the active consumer.
	StateActiveListening State = "active_listening"

	// StatePermanentlyDisabled means the capability failed beyond the retry
	// budget or in an unrecoverable way. Terminal until an explicit Reset.
	StatePermanentlyDisabled State = "permanently_disabled"
)

// Session is the value describing the recognition session. It is owned
// exclusively by the [Controller] and transitioned only through the pure
// functions in this file, which keeps the retry policy unit-testable without
// a real recognizer.
type Session struct {
	State      State
	RetryCount int
}

// ErrorClass is the engine-side classification of a recognition failure.
// It refines [recognition.ErrorCode] with environment knowledge (whether the
// origin is secure).
type ErrorClass string

const (
	// ClassTransientNetwork is a network failure on a secure origin: retried
	// under the budget.
	ClassTransientNetwork ErrorClass = "transient-network"

	// ClassInsecureOrigin is the same network failure on an origin that is
	// neither HTTPS nor local: unrecoverable, no retry.
	ClassInsecureOrigin ErrorClass = "insecure-origin"

	// ClassPermissionDenied means access to the capability was denied.
	// Unrecoverable without manual corrective action.
	ClassPermissionDenied ErrorClass = "permission-denied"

	// ClassNoInput means the session ended having captured no speech.
	ClassNoInput ErrorClass = "no-input"

	// ClassAborted means the controller stopped the session intentionally.
	ClassAborted ErrorClass = "aborted"

	// ClassUnknown covers every other code: retried conservatively under the
	// budget, then escalated to the disabled state.
	ClassUnknown ErrorClass = "unknown"
)

// Action tells the controller what to do after a transition.
type Action string

const (
	// ActionNone requires no follow-up.
	ActionNone Action = "none"

	// ActionRetry schedules a restart after the class-specific fixed delay.
	ActionRetry Action = "retry"

	// ActionDisable permanently disables listening and surfaces the one-shot
	// alert for the triggering class.
	ActionDisable Action = "disable"
)

// Classify maps a capability error code to its engine-side class.
// secureOrigin reports whether the surrounding application runs in a context
// the recognition service considers secure (HTTPS or local).
func Classify(code recognition.ErrorCode, secureOrigin bool) ErrorClass {
	switch code {
	case recognition.ErrorNetwork:
		if !secureOrigin {
			return ClassInsecureOrigin
		}
		return ClassTransientNetwork
	case recognition.ErrorNotAllowed:
		return ClassPermissionDenied
	case recognition.ErrorNoSpeech:
		return ClassNoInput
	case recognition.ErrorAborted:
		return ClassAborted
	default:
		return ClassUnknown
	}
}

// ApplyError returns the session after a classified error and the action the
// controller must take. maxRetries bounds every retried class; once the
// incremented count reaches it, the session disables.
func ApplyError(s Session, class ErrorClass, maxRetries int) (Session, Action) {
	switch class {
	case ClassAborted:
		return s, ActionNone

	case ClassInsecureOrigin, ClassPermissionDenied:
		s.State = StatePermanentlyDisabled
		return s, ActionDisable

	case ClassNoInput:
		// An active session that hears nothing falls back to wake-word
		// listening, same as a spontaneous end — the microphone must never be
		// left dead mid-dialogue.
		if s.State == StateActiveListening {
			s.State = StateWaitingForWakeWord
			if s.RetryCount >= maxRetries {
				s.State = StatePermanentlyDisabled
				return s, ActionDisable
			}
			return s, ActionRetry
		}
		if s.State != StateWaitingForWakeWord {
			return s, ActionNone
		}
		s.RetryCount++
		if s.RetryCount >= maxRetries {
			s.State = StatePermanentlyDisabled
			return s, ActionDisable
		}
		return s, ActionRetry

	case ClassTransientNetwork, ClassUnknown:
		s.RetryCount++
		if s.RetryCount >= maxRetries {
			s.State = StatePermanentlyDisabled
			return s, ActionDisable
		}
		return s, ActionRetry

	default:
		return s, ActionNone
	}
}

// ApplyEnd returns the session after a spontaneous session end (one the
// controller did not request) and the action to take. While still waiting for
// the wake word and under the retry budget, the session restarts — this is
// what keeps wake-word listening continuously available despite the
// recognizer's tendency to end sessions on its own.
func ApplyEnd(s Session, maxRetries int) (Session, Action) {
	switch s.State {
	case StateWaitingForWakeWord:
		if s.RetryCount >= maxRetries {
			s.State = StatePermanentlyDisabled
			return s, ActionDisable
		}
		return s, ActionRetry

	case StateActiveListening:
		// An active session that ends on its own falls back to wake-word
		// listening rather than leaving the microphone dead.
		s.State = StateWaitingForWakeWord
		if s.RetryCount >= maxRetries {
			s.State = StatePermanentlyDisabled
			return s, ActionDisable
		}
		return s, ActionRetry

	default:
		return s, ActionNone
	}
}

// ApplyResult returns the session after a successful final result. A working
// recognizer implies health, so the retry count resets to zero.
func ApplyResult(s Session) Session {
	s.RetryCount = 0
	return s
}
