// Package wsasr provides a [recognition.Recognizer] backed by a streaming
// WebSocket ASR service speaking the Deepgram-style wire protocol: binary PCM
// frames up, JSON "Results" events down, a text CloseStream message to flush.
//
// The recognizer owns one WebSocket connection per session. Audio comes from
// an injected source opener, so the same backend serves a real microphone
// capture pipeline or a file replay in integration tests.
package wsasr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/voxtask/voxtask/pkg/provider/recognition"
	"github.com/voxtask/voxtask/pkg/types"
)

const (
	defaultModel      = "nova-3"
	defaultSampleRate = 16000

	// audioChunkSize is the PCM frame size read from the source per message.
	audioChunkSize = 4096
)

// AudioSource opens the PCM audio stream for one session. It is called once
// per Start; the returned reader is closed when the session ends.
type AudioSource func(ctx context.Context) (io.ReadCloser, error)

// Option is a functional option for configuring the Recognizer.
type Option func(*Recognizer)

// WithModel sets the ASR model requested from the service.
func WithModel(model string) Option {
	return func(r *Recognizer) { r.model = model }
}

// WithSampleRate sets the PCM sample rate in Hz announced to the service.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.sampleRate = rate }
}

// Recognizer implements [recognition.Recognizer] over a streaming WebSocket
// ASR service.
type Recognizer struct {
	endpoint   string
	apiKey     string
	model      string
	sampleRate int
	source     AudioSource

	mu      sync.Mutex
	events  recognition.Events
	session *session
}

var _ recognition.Recognizer = (*Recognizer)(nil)

// New creates a Recognizer for the ASR service at endpoint (a wss:// URL).
// apiKey must be non-empty; source provides the session audio.
func New(endpoint, apiKey string, source AudioSource, opts ...Option) (*Recognizer, error) {
	if endpoint == "" {
		return nil, errors.New("wsasr: endpoint must not be empty")
	}
	if apiKey == "" {
		return nil, errors.New("wsasr: apiKey must not be empty")
	}
	if source == nil {
		return nil, errors.New("wsasr: audio source must not be nil")
	}
	r := &Recognizer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      defaultModel,
		sampleRate: defaultSampleRate,
		source:     source,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// SetEvents installs the handler set, replacing any previous one.
func (r *Recognizer) SetEvents(ev recognition.Events) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = ev
}

// Start dials the service and begins streaming audio. The session is open
// once OnStart fires.
func (r *Recognizer) Start(cfg recognition.Config) error {
	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		return recognition.ErrAlreadyRunning
	}
	ev := r.events
	r.mu.Unlock()

	wsURL, err := r.buildURL(cfg)
	if err != nil {
		return fmt.Errorf("wsasr: build URL: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	audio, err := r.source(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("wsasr: open audio source: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		audio.Close()
		cancel()
		return fmt.Errorf("wsasr: dial: %w", err)
	}

	sess := &session{
		conn:   conn,
		audio:  audio,
		cancel: cancel,
		events: ev,
		onDone: r.clearSession,
	}

	r.mu.Lock()
	r.session = sess
	r.mu.Unlock()

	sess.wg.Add(1)
	go sess.writeLoop(ctx)
	go sess.run(ctx)

	if ev.OnStart != nil {
		ev.OnStart()
	}
	return nil
}

// Stop requests the session to close. OnEnd fires once the service has
// flushed its pending results and the connection is down.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return
	}
	sess.stop()
}

func (r *Recognizer) clearSession(sess *session) {
	r.mu.Lock()
	if r.session == sess {
		r.session = nil
	}
	r.mu.Unlock()
}

// buildURL constructs the streaming endpoint URL for the given config.
func (r *Recognizer) buildURL(cfg recognition.Config) (string, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", r.model)
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	q.Set("punctuate", "true")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("sample_rate", strconv.Itoa(r.sampleRate))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- session ----

// resultEvent is the JSON structure the service sends for a Results event.
type resultEvent struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is one live streaming connection.
type session struct {
	conn   *websocket.Conn
	audio  io.ReadCloser
	cancel context.CancelFunc
	events recognition.Events
	onDone func(*session)

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  bool
	stopMu   sync.Mutex

	sawSpeech bool
}

// stop sends the CloseStream message so the service flushes pending results,
// then stops feeding audio. The read loop exits when the service closes.
func (s *session) stop() {
	s.stopOnce.Do(func() {
		s.stopMu.Lock()
		s.stopped = true
		s.stopMu.Unlock()
		if err := s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
			// Connection already gone; unblock the read loop directly.
			s.cancel()
		}
	})
}

// run owns the read side and the session teardown: it dispatches results,
// classifies the terminal error, and always emits OnEnd exactly once.
func (s *session) run(ctx context.Context) {
	code, failed := s.readLoop(ctx)

	s.cancel()
	s.wg.Wait()
	s.audio.Close()
	s.conn.Close(websocket.StatusNormalClosure, "session closed")
	s.onDone(s)

	if failed && s.events.OnError != nil {
		s.events.OnError(code)
	}
	if s.events.OnEnd != nil {
		s.events.OnEnd()
	}
}

// readLoop receives JSON messages until the connection closes and reports how
// the session ended.
func (s *session) readLoop(ctx context.Context) (recognition.ErrorCode, bool) {
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			return s.classifyEnd(err)
		}

		tr, ok := parseResult(msg)
		if !ok {
			continue
		}

		s.stopMu.Lock()
		s.sawSpeech = true
		s.stopMu.Unlock()

		if s.events.OnResult != nil {
			s.events.OnResult(tr)
		}
	}
}

// parseResult parses a raw service message into a Transcript. Returns
// (zero, false) for anything other than a non-empty Results event.
func parseResult(data []byte) (types.Transcript, bool) {
	var res resultEvent
	if err := json.Unmarshal(data, &res); err != nil {
		return types.Transcript{}, false
	}
	if res.Type != "Results" || len(res.Channel.Alternatives) == 0 {
		return types.Transcript{}, false
	}
	alt := res.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return types.Transcript{}, false
	}
	return types.Transcript{
		Text:       alt.Transcript,
		IsFinal:    res.IsFinal,
		Confidence: alt.Confidence,
	}, true
}

// classifyEnd maps the read loop's terminal error onto a recognition error
// code, or onto a clean end when the controller asked for the stop.
func (s *session) classifyEnd(err error) (recognition.ErrorCode, bool) {
	s.stopMu.Lock()
	stopped := s.stopped
	sawSpeech := s.sawSpeech
	s.stopMu.Unlock()

	status := websocket.CloseStatus(err)
	switch {
	case stopped || errors.Is(err, context.Canceled):
		// Intentional stop is a clean end, not an error.
		return "", false
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		if !sawSpeech {
			return recognition.ErrorNoSpeech, true
		}
		return "", false
	case status == websocket.StatusPolicyViolation:
		return recognition.ErrorNotAllowed, true
	case status != -1:
		slog.Warn("wsasr: session closed abnormally", "status", status, "error", err)
		return recognition.ErrorOther, true
	default:
		return recognition.ErrorNetwork, true
	}
}

// writeLoop reads PCM chunks from the audio source and sends them as binary
// messages until the source drains or the session stops.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, audioChunkSize)
	for {
		s.stopMu.Lock()
		stopped := s.stopped
		s.stopMu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}

		n, err := s.audio.Read(buf)
		if n > 0 {
			if werr := s.conn.Write(ctx, websocket.MessageBinary, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			// Source drained: tell the service to flush and finalize.
			s.stop()
			return
		}
	}
}
