// Package recognition defines the Recognizer interface for speech-to-text
// capabilities driven by the Voxtask engine.
//
// A Recognizer wraps a continuous recognition service (e.g., a streaming ASR
// server or a platform speech API) and surfaces its lifecycle as events:
// session start, session end, final results, and classified errors. The
// engine's input controller is the single owner of the recognizer — it alone
// calls Start and Stop, and it interprets every event.
//
// Event delivery is single-subscriber: SetEvents installs one handler set and
// replaces any previous one. This matches the engine's design — exactly one
// logical listener interprets recognition output at a time.
package recognition

import (
	"errors"

	"github.com/voxtask/voxtask/pkg/types"
)

// ErrAlreadyRunning is returned by Start when a session is already open.
// Callers that treat Start as idempotent should check for it with errors.Is.
var ErrAlreadyRunning = errors.New("recognition: session already running")

// ErrorCode classifies a recognition failure. The engine's retry policy
// branches on these codes; implementations must map their native errors onto
// the closest code and use ErrorOther for anything unclassifiable.
type ErrorCode string

const (
	// ErrorNetwork indicates the recognition service could not be reached or
	// the connection dropped mid-session.
	ErrorNetwork ErrorCode = "network"

	// ErrorNotAllowed indicates microphone or service access was denied.
	ErrorNotAllowed ErrorCode = "not-allowed"

	// ErrorNoSpeech indicates the session ended without capturing any speech.
	ErrorNoSpeech ErrorCode = "no-speech"

	// ErrorAborted indicates the session was stopped intentionally by the
	// controller. Not an error condition.
	ErrorAborted ErrorCode = "aborted"

	// ErrorOther covers every code not listed above.
	ErrorOther ErrorCode = "other"
)

// Config describes how a recognition session should behave.
type Config struct {
	// Continuous keeps the session open across multiple utterances instead of
	// ending after the first final result.
	Continuous bool

	// InterimResults requests partial transcripts in addition to finals.
	InterimResults bool

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	Language string
}

// Events holds the single-subscriber event ports for one recognizer.
// Nil handlers are skipped. Implementations must invoke handlers from at most
// one goroutine at a time so that the controller can serialize its state
// transitions without external locking.
type Events struct {
	// OnStart fires when the session has actually opened.
	OnStart func()

	// OnEnd fires when the session has ended, whether stopped by the
	// controller or spontaneously by the service. Always fires eventually
	// after a successful Start, even on error paths.
	OnEnd func()

	// OnResult fires for each transcript. Interim results have IsFinal=false.
	OnResult func(types.Transcript)

	// OnError fires when the session fails. OnEnd still follows.
	OnError func(ErrorCode)
}

// Recognizer is the abstraction over any speech recognition backend.
//
// Start and Stop are asynchronous requests: the session is only known to be
// open once OnStart fires and closed once OnEnd fires. Stop on a stopped
// recognizer is a no-op.
type Recognizer interface {
	// SetEvents installs the event handler set, replacing any previous one.
	// Must be called before Start.
	SetEvents(Events)

	// Start opens a recognition session. Returns ErrAlreadyRunning if a
	// session is already open, or another error if the capability is
	// unavailable.
	Start(cfg Config) error

	// Stop requests the session to close. The closure is acknowledged
	// asynchronously via OnEnd; callers must not assume the microphone is
	// released before that event fires.
	Stop()
}
