package synthesis

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/voxtask/voxtask/pkg/types"
)

// perWordDuration approximates speaking pace for the console synthesizer.
const perWordDuration = 300 * time.Millisecond

// Console is a Synthesizer that writes utterances to an io.Writer and
// simulates speaking time from the word count and configured rate. Used by
// the demo shell.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	timer *time.Timer
}

var _ Synthesizer = (*Console)(nil)

// NewConsole returns a Console synthesizer writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Speak writes the utterance and schedules done after the simulated speaking
// duration.
func (c *Console) Speak(text string, settings types.VoiceSettings, done func()) {
	d := time.Duration(len(strings.Fields(text))) * perWordDuration
	if settings.Rate > 0 {
		d = time.Duration(float64(d) / settings.Rate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	fmt.Fprintf(c.w, "🗣  %s\n", text)
	c.timer = time.AfterFunc(d, func() {
		if done != nil {
			done()
		}
	})
}

// Cancel stops the simulated utterance, dropping its done callback.
func (c *Console) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
