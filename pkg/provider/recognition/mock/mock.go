// Package mock provides an in-memory scripted implementation of
// [recognition.Recognizer] for use in unit tests.
//
// The mock records every method call so that tests can assert on call counts,
// and exposes Emit* methods to simulate recognizer events. Emit* methods are
// synchronous: the installed handler runs on the caller's goroutine, which
// keeps tests deterministic.
//
// Typical usage:
//
//	rec := &mock.Recognizer{}
//	ctrl := input.NewController(rec, ...)
//	ctrl.StartWakeWordListening()
//	rec.EmitStart()
//	rec.EmitFinal("hi voice", 0.92)
package mock

import (
	"sync"

	"github.com/voxtask/voxtask/pkg/provider/recognition"
	"github.com/voxtask/voxtask/pkg/types"
)

// Recognizer is a scripted mock implementation of [recognition.Recognizer].
// Set the exported fields before use; inspect the Call* fields after.
type Recognizer struct {
	mu sync.Mutex

	// StartError is returned by Start when non-nil.
	StartError error

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// StartConfigs holds the Config passed to each Start call, in order.
	StartConfigs []recognition.Config

	events  recognition.Events
	running bool
}

var _ recognition.Recognizer = (*Recognizer)(nil)

// SetEvents installs the handler set.
func (r *Recognizer) SetEvents(ev recognition.Events) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = ev
}

// Start records the call and marks the session running. Returns StartError if
// set, or recognition.ErrAlreadyRunning when a session is already open.
// It does NOT emit OnStart — tests drive that explicitly via EmitStart.
func (r *Recognizer) Start(cfg recognition.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountStart++
	r.StartConfigs = append(r.StartConfigs, cfg)
	if r.StartError != nil {
		return r.StartError
	}
	if r.running {
		return recognition.ErrAlreadyRunning
	}
	r.running = true
	return nil
}

// Stop records the call and marks the session stopped. It does not emit OnEnd;
// tests emit it explicitly to model the asynchronous acknowledgement.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountStop++
	r.running = false
}

// Running reports whether the mock considers a session open.
func (r *Recognizer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// EmitStart invokes the OnStart handler, if any.
func (r *Recognizer) EmitStart() {
	if h := r.handlers().OnStart; h != nil {
		h()
	}
}

// EmitEnd marks the session stopped and invokes the OnEnd handler, if any.
func (r *Recognizer) EmitEnd() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	if h := r.handlers().OnEnd; h != nil {
		h()
	}
}

// EmitFinal invokes OnResult with a final transcript.
func (r *Recognizer) EmitFinal(text string, confidence float64) {
	if h := r.handlers().OnResult; h != nil {
		h(types.Transcript{Text: text, Confidence: confidence, IsFinal: true})
	}
}

// EmitInterim invokes OnResult with an interim transcript.
func (r *Recognizer) EmitInterim(text string, confidence float64) {
	if h := r.handlers().OnResult; h != nil {
		h(types.Transcript{Text: text, Confidence: confidence, IsFinal: false})
	}
}

// EmitError invokes the OnError handler, if any.
func (r *Recognizer) EmitError(code recognition.ErrorCode) {
	if h := r.handlers().OnError; h != nil {
		h(code)
	}
}

func (r *Recognizer) handlers() recognition.Events {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}
