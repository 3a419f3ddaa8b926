// Package synthesis defines the Synthesizer interface for text-to-speech
// capabilities driven by the Voxtask engine.
//
// A Synthesizer renders one utterance at a time. The engine's output
// controller is responsible for serialization — it never issues a second
// Speak without first cancelling the one in flight — so implementations only
// need to handle a single active utterance.
package synthesis

import "github.com/voxtask/voxtask/pkg/types"

// Synthesizer is the abstraction over any text-to-speech backend.
type Synthesizer interface {
	// Speak begins synthesising text and returns without waiting for
	// completion. done is invoked exactly once when synthesis finishes
	// naturally; it is never invoked when Cancel preempts the utterance.
	// done may be nil.
	Speak(text string, settings types.VoiceSettings, done func())

	// Cancel stops the in-flight utterance, if any, discarding its done
	// callback. Safe to call when nothing is being spoken.
	Cancel()
}
