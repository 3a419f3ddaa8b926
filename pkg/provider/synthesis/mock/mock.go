// Package mock provides an in-memory implementation of
// [synthesis.Synthesizer] for use in unit tests.
//
// By default the mock completes each utterance synchronously, invoking done
// before Speak returns. Set Manual to true to hold utterances open until the
// test calls Finish, which is how supersession behaviour is exercised.
package mock

import (
	"sync"

	"github.com/voxtask/voxtask/pkg/provider/synthesis"
	"github.com/voxtask/voxtask/pkg/types"
)

// Synthesizer is a mock implementation of [synthesis.Synthesizer].
type Synthesizer struct {
	mu sync.Mutex

	// Manual, when true, keeps each utterance in flight until Finish is
	// called. When false (the default), done runs synchronously inside Speak.
	Manual bool

	// Spoken holds the text of every Speak call, in order.
	Spoken []string

	// CallCountCancel records how many times Cancel was called.
	CallCountCancel int

	pending func()
}

var _ synthesis.Synthesizer = (*Synthesizer)(nil)

// Speak records text and either completes immediately or, in Manual mode,
// parks done until Finish.
func (s *Synthesizer) Speak(text string, _ types.VoiceSettings, done func()) {
	s.mu.Lock()
	s.Spoken = append(s.Spoken, text)
	if s.Manual {
		s.pending = done
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if done != nil {
		done()
	}
}

// Cancel drops the pending utterance and its callback.
func (s *Synthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountCancel++
	s.pending = nil
}

// Finish completes the in-flight utterance in Manual mode, invoking its done
// callback. No-op when nothing is pending.
func (s *Synthesizer) Finish() {
	s.mu.Lock()
	done := s.pending
	s.pending = nil
	s.mu.Unlock()
	if done != nil {
		done()
	}
}

// Last returns the most recently spoken text, or "" when nothing was spoken.
func (s *Synthesizer) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Spoken) == 0 {
		return ""
	}
	return s.Spoken[len(s.Spoken)-1]
}
