// Package input implements the speech input controller: the single owner of
// the shared recognition session.
//
// The controller runs the wake-word state machine, classifies capability
// errors, retries with bounded fixed delays, and permanently disables itself
// when the budget is exhausted or the environment is unrecoverable. Capability
// errors are fully absorbed here — they surface to the application only as
// listening-state changes and, on disablement, a one-shot spoken/visual alert.
package input

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
	"github.com/voxtask/voxtask/pkg/provider/notify"
	"github.com/voxtask/voxtask/pkg/provider/recognition"
	"github.com/voxtask/voxtask/pkg/types"
)

// Config holds the input controller's tuning knobs. The retry delays are
// deliberate fixed constants, not a backoff curve.
type Config struct {
	// WakePhrase is matched against finals by case-insensitive substring
	// containment, so the phrase embedded in a longer utterance still triggers.
	WakePhrase string

	// WakeAck is spoken when the wake phrase is detected.
	WakeAck string

	// Language is the BCP-47 tag passed to the recognition capability.
	Language string

	// MaxRetries bounds automatic re-attempts after recoverable errors.
	MaxRetries int

	// SecureOrigin reports whether the surrounding application runs in a
	// context the recognition service considers secure. A network failure on
	// an insecure origin disables listening immediately.
	SecureOrigin bool

	// RestartDelay applies after a clean session end while still waiting for
	// the wake word.
	RestartDelay time.Duration

	// NoSpeechRetryDelay applies after a no-speech error.
	NoSpeechRetryDelay time.Duration

	// NetworkRetryDelay applies after a transient network error.
	NetworkRetryDelay time.Duration

	// UnknownRetryDelay applies after an unclassified error.
	UnknownRetryDelay time.Duration
}

// DefaultConfig returns the standard controller configuration.
func DefaultConfig() Config {
	return Config{
		WakePhrase:         "hi voice",
		WakeAck:            "Yes? I'm listening.",
		Language:           "en-US",
		MaxRetries:         3,
		SecureOrigin:       true,
		RestartDelay:       time.Second,
		NoSpeechRetryDelay: 1500 * time.Millisecond,
		NetworkRetryDelay:  3 * time.Second,
		UnknownRetryDelay:  2 * time.Second,
	}
}

// Controller owns the recognition session. All capability events and timer
// callbacks are serialized through its mutex; no other component may start,
// stop, or interpret recognition.
type Controller struct {
	cfg      Config
	rec      recognition.Recognizer
	out      *output.Controller
	notifier notify.Notifier
	clk      clock.Clock
	metrics  *observe.Metrics

	mu           sync.Mutex
	sess         Session
	running      bool
	stopping     bool
	errorHandled bool
	retryTimer   clock.Timer
	alerted      map[ErrorClass]bool

	onWakeWord    func()
	onTranscript  func(string)
	onStateChange func(types.ListeningState)
}

// Option is a functional option for NewController.
type Option func(*Controller)

// WithMetrics wires OTel instruments into the controller.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a Controller in the Idle state. It installs itself as
// the recognizer's single event subscriber.
func NewController(rec recognition.Recognizer, out *output.Controller, notifier notify.Notifier, clk clock.Clock, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		rec:      rec,
		out:      out,
		notifier: notifier,
		clk:      clk,
		sess:     Session{State: StateIdle},
		alerted:  make(map[ErrorClass]bool),
	}
	for _, o := range opts {
		o(c)
	}
	rec.SetEvents(recognition.Events{
		OnStart:  c.handleStart,
		OnEnd:    c.handleEnd,
		OnResult: c.handleResult,
		OnError:  c.handleError,
	})
	return c
}

// ─── Event ports ─────────────────────────────────────────────────────────────

// OnWakeWord installs the single wake-word subscriber, replacing any previous one.
func (c *Controller) OnWakeWord(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWakeWord = f
}

// OnTranscript installs the single transcript subscriber. It receives finals
// captured during active listening, lower-cased and trimmed.
func (c *Controller) OnTranscript(f func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTranscript = f
}

// OnListeningStateChange installs the single listening-state subscriber.
func (c *Controller) OnListeningStateChange(f func(types.ListeningState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = f
}

// ─── Operations ──────────────────────────────────────────────────────────────

// StartWakeWordListening begins (or resumes) wake-word listening. Valid from
// Idle or WaitingForWakeWord; the retry count resets only when no session is
// currently running. Fails silently — logging only — when the controller is
// permanently disabled or the capability refuses to start, so callers may
// invoke it unconditionally.
func (c *Controller) StartWakeWordListening() {
	c.mu.Lock()
	switch c.sess.State {
	case StatePermanentlyDisabled:
		c.mu.Unlock()
		slog.Info("input: start ignored, listening permanently disabled")
		return
	case StateActiveListening:
		c.mu.Unlock()
		slog.Warn("input: start ignored, active session in progress")
		return
	}

	if c.sess.State == StateIdle {
		// Fresh start: this is the only implicit retry reset.
		c.sess.RetryCount = 0
	}
	c.sess.State = StateWaitingForWakeWord
	c.startCapabilityLocked()
	emit := c.stateChangeLocked()
	c.mu.Unlock()
	emit()
}

// StartActiveListening suspends wake-word matching and begins capturing a
// task-session transcript. Used once a wake phrase or an explicit trigger has
// occurred.
func (c *Controller) StartActiveListening() {
	c.mu.Lock()
	if c.sess.State == StatePermanentlyDisabled {
		c.mu.Unlock()
		slog.Info("input: active listening ignored, permanently disabled")
		return
	}
	c.cancelRetryLocked()
	c.sess.State = StateActiveListening
	c.startCapabilityLocked()
	emit := c.stateChangeLocked()
	c.mu.Unlock()
	emit()
}

// StopListening cancels any pending retry and requests the capability to
// stop. Safe — and a no-op toward the capability — when already stopped or
// when a stop is already awaiting the capability's acknowledgement.
func (c *Controller) StopListening() {
	c.mu.Lock()
	c.cancelRetryLocked()
	if c.stopping {
		c.mu.Unlock()
		return
	}
	if !c.running {
		if c.sess.State != StatePermanentlyDisabled && c.sess.State != StateIdle {
			c.sess.State = StateIdle
			emit := c.stateChangeLocked()
			c.mu.Unlock()
			emit()
			return
		}
		c.mu.Unlock()
		return
	}
	c.stopping = true
	c.mu.Unlock()
	c.rec.Stop()
}

// Reset clears the permanently-disabled state and the retry count, returning
// the controller to Idle. This is the only recovery path once disabled.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.cancelRetryLocked()
	c.sess = Session{State: StateIdle}
	c.stopping = false
	c.errorHandled = false
	c.alerted = make(map[ErrorClass]bool)
	emit := c.stateChangeLocked()
	c.mu.Unlock()
	emit()
	slog.Info("input: controller reset")
}

// State returns a snapshot of the recognition session value.
func (c *Controller) State() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// ─── Capability events ───────────────────────────────────────────────────────

func (c *Controller) handleStart() {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	slog.Debug("input: recognition session started")
}

func (c *Controller) handleResult(tr types.Transcript) {
	if !tr.IsFinal {
		return
	}

	c.mu.Lock()
	state := c.sess.State
	if state != StateWaitingForWakeWord && state != StateActiveListening {
		c.mu.Unlock()
		return
	}
	c.sess = ApplyResult(c.sess)
	normalized := strings.ToLower(strings.TrimSpace(tr.Text))

	switch state {
	case StateWaitingForWakeWord:
		if !strings.Contains(normalized, strings.ToLower(c.cfg.WakePhrase)) {
			c.mu.Unlock()
			return
		}
		wake := c.onWakeWord
		c.mu.Unlock()

		slog.Info("input: wake phrase detected", "transcript", normalized)
		c.record(func(ctx context.Context, m *observe.Metrics) {
			m.WakeDetections.Add(ctx, 1)
		})
		// The wake callback rides the ack's completion so the next utterance
		// does not supersede the acknowledgement mid-word.
		c.out.Speak(c.cfg.WakeAck, wake)

	case StateActiveListening:
		forward := c.onTranscript
		c.mu.Unlock()
		if forward != nil {
			forward(normalized)
		}
	}
}

func (c *Controller) handleError(code recognition.ErrorCode) {
	class := Classify(code, c.cfg.SecureOrigin)

	c.mu.Lock()
	if c.sess.State == StatePermanentlyDisabled || c.sess.State == StateIdle {
		c.mu.Unlock()
		return
	}
	c.errorHandled = true
	next, action := ApplyError(c.sess, class, c.cfg.MaxRetries)
	stateChanged := next.State != c.sess.State
	c.sess = next
	var emit func()
	if stateChanged && action != ActionDisable {
		// The disable path emits its own state change below.
		emit = c.stateChangeLocked()
	}
	c.mu.Unlock()
	if emit != nil {
		emit()
	}

	if class != ClassAborted {
		slog.Warn("input: recognition error",
			"code", code,
			"class", class,
			"retry_count", next.RetryCount,
			"action", action,
		)
		c.record(func(ctx context.Context, m *observe.Metrics) {
			m.RecognitionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("class", string(class))))
		})
	}

	switch action {
	case ActionRetry:
		c.scheduleRetry(c.retryDelayFor(class))
	case ActionDisable:
		c.disable(class)
	}
}

func (c *Controller) handleEnd() {
	c.mu.Lock()
	c.running = false

	if c.stopping {
		c.stopping = false
		c.errorHandled = false
		if c.sess.State != StatePermanentlyDisabled {
			c.sess.State = StateIdle
		}
		emit := c.stateChangeLocked()
		c.mu.Unlock()
		emit()
		return
	}

	if c.errorHandled {
		// The error handler already scheduled a retry or disabled; the end
		// event that trails every error must not restart on top of it.
		c.errorHandled = false
		c.mu.Unlock()
		return
	}

	next, action := ApplyEnd(c.sess, c.cfg.MaxRetries)
	stateChanged := next.State != c.sess.State
	c.sess = next
	var emit func()
	if stateChanged {
		emit = c.stateChangeLocked()
	}
	c.mu.Unlock()
	if emit != nil {
		emit()
	}

	switch action {
	case ActionRetry:
		slog.Debug("input: session ended, restarting", "delay", c.cfg.RestartDelay)
		c.scheduleRetry(c.cfg.RestartDelay)
	case ActionDisable:
		c.disable(ClassUnknown)
	}
}

// ─── Retry machinery ─────────────────────────────────────────────────────────

// scheduleRetry arms the single retry timer. Retries are strictly serialized:
// any prior pending timer is cancelled first.
func (c *Controller) scheduleRetry(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelRetryLocked()
	c.retryTimer = c.clk.AfterFunc(delay, c.retryFire)
}

func (c *Controller) retryFire() {
	c.mu.Lock()
	c.retryTimer = nil
	if c.sess.State != StateWaitingForWakeWord || c.running {
		c.mu.Unlock()
		return
	}
	c.startCapabilityLocked()
	c.mu.Unlock()

	c.record(func(ctx context.Context, m *observe.Metrics) {
		m.RecognitionRestarts.Add(ctx, 1)
	})
}

func (c *Controller) cancelRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// startCapabilityLocked asks the recognizer to begin. Failures are logged
// only — start is idempotent by design.
func (c *Controller) startCapabilityLocked() {
	if c.running {
		return
	}
	err := c.rec.Start(recognition.Config{
		Continuous:     true,
		InterimResults: true,
		Language:       c.cfg.Language,
	})
	if err != nil {
		slog.Warn("input: could not start recognition", "error", err)
		return
	}
	c.running = true
}

// ─── Disable path ────────────────────────────────────────────────────────────

// disable transitions to PermanentlyDisabled and surfaces at most one alert
// per cause: a final informative utterance plus a visual notification, never
// a silent hang.
func (c *Controller) disable(class ErrorClass) {
	c.mu.Lock()
	c.cancelRetryLocked()
	c.sess.State = StatePermanentlyDisabled
	first := !c.alerted[class]
	c.alerted[class] = true
	emit := c.stateChangeLocked()
	c.mu.Unlock()
	emit()

	slog.Error("input: listening permanently disabled", "cause", class)
	c.record(func(ctx context.Context, m *observe.Metrics) {
		m.ListeningDisables.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", string(class))))
	})

	if !first {
		return
	}

	msg := disableMessage(class)
	c.out.Speak(msg, nil)
	if c.notifier != nil {
		if err := c.notifier.Show(notify.Notification{Title: "Voice assistant", Body: msg}); err != nil {
			slog.Warn("input: could not show disable alert", "error", err)
		}
	}
}

func disableMessage(class ErrorClass) string {
	switch class {
	case ClassInsecureOrigin:
		return "Voice recognition needs a secure connection. Please open the app over HTTPS."
	case ClassPermissionDenied:
		return "Microphone access was denied. Please allow it in your settings and restart voice control."
	default:
		return "Voice recognition keeps failing, so I'm going to stop listening for now."
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (c *Controller) retryDelayFor(class ErrorClass) time.Duration {
	switch class {
	case ClassNoInput:
		return c.cfg.NoSpeechRetryDelay
	case ClassTransientNetwork:
		return c.cfg.NetworkRetryDelay
	default:
		return c.cfg.UnknownRetryDelay
	}
}

// stateChangeLocked captures the subscriber and state under the lock and
// returns a closure that emits outside of it.
func (c *Controller) stateChangeLocked() func() {
	f := c.onStateChange
	state := listeningStateOf(c.sess.State)
	if f == nil {
		return func() {}
	}
	return func() { f(state) }
}

func listeningStateOf(s State) types.ListeningState {
	switch s {
	case StateWaitingForWakeWord:
		return types.ListeningForWakeWord
	case StateActiveListening:
		return types.ListeningActive
	case StatePermanentlyDisabled:
		return types.ListeningDisabled
	default:
		return types.ListeningIdle
	}
}

func (c *Controller) record(f func(context.Context, *observe.Metrics)) {
	if c.metrics == nil {
		return
	}
	f(context.Background(), c.metrics)
}
