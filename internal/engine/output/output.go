// Package output implements the speech output controller: the single point
// through which every Voxtask component speaks.
//
// The controller guarantees sequential, non-overlapping utterances using a
// supersession model rather than a queue: a new Speak cancels whatever is in
// flight and begins immediately, matching a live assistant's "interrupt to
// say the next thing" behaviour. The superseded utterance's completion
// callback is dropped, never invoked.
package output

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/pkg/provider/synthesis"
	"github.com/voxtask/voxtask/pkg/types"
)

// Controller serializes spoken output through one synthesis capability.
// Safe for concurrent use.
type Controller struct {
	mu       sync.Mutex
	synth    synthesis.Synthesizer
	settings types.VoiceSettings
	metrics  *observe.Metrics

	// generation increments on every Speak and Cancel. A completion callback
	// only counts if its generation is still current — this is what drops
	// superseded callbacks.
	generation uint64
	speaking   bool
}

// Option is a functional option for NewController.
type Option func(*Controller)

// WithMetrics wires OTel instruments into the controller.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a Controller speaking through synth with the given
// voice settings.
func NewController(synth synthesis.Synthesizer, settings types.VoiceSettings, opts ...Option) *Controller {
	c := &Controller{synth: synth, settings: settings}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Speak cancels any utterance currently in flight and begins speaking text.
// onComplete fires exactly once when synthesis finishes naturally; it never
// fires when a later Speak or Cancel supersedes this utterance. onComplete
// may be nil.
func (c *Controller) Speak(text string, onComplete func()) {
	c.mu.Lock()
	if c.speaking {
		slog.Debug("output: superseding in-flight utterance", "text", text)
		c.synth.Cancel()
	}
	c.generation++
	gen := c.generation
	c.speaking = true
	c.mu.Unlock()

	started := time.Now()
	c.synth.Speak(text, c.settings, func() {
		c.mu.Lock()
		if c.generation != gen {
			// A newer utterance superseded this one after the synthesizer had
			// already committed to completing it.
			c.mu.Unlock()
			return
		}
		c.speaking = false
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.UtteranceDuration.Record(context.Background(), time.Since(started).Seconds())
		}
		if onComplete != nil {
			onComplete()
		}
	})
}

// Cancel stops the in-flight utterance, if any, dropping its completion
// callback. Safe to call when nothing is being spoken.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.speaking {
		return
	}
	c.generation++
	c.speaking = false
	c.synth.Cancel()
}

// Speaking reports whether an utterance is currently in flight.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}
