// Package openaitts provides a [synthesis.Synthesizer] backed by the OpenAI
// speech API. Each utterance is synthesized to a PCM stream and handed to an
// injected sink for playback; cancellation aborts the in-flight request and
// drops its completion callback.
package openaitts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/voxtask/voxtask/pkg/provider/synthesis"
	"github.com/voxtask/voxtask/pkg/types"
)

// DefaultModel is the default OpenAI speech model.
const DefaultModel = oai.SpeechModelTTS1

// Sink consumes one utterance's PCM stream, blocking until playback finishes.
// The reader yields 24kHz 16-bit mono PCM as produced by the speech endpoint.
type Sink func(ctx context.Context, pcm io.Reader) error

// Ensure Synthesizer implements the synthesis.Synthesizer interface.
var _ synthesis.Synthesizer = (*Synthesizer)(nil)

// Synthesizer implements synthesis.Synthesizer using the OpenAI speech API.
type Synthesizer struct {
	client oai.Client
	model  string
	voice  oai.AudioSpeechNewParamsVoice
	sink   Sink

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// config holds optional configuration for the synthesizer.
type config struct {
	baseURL string
	voice   oai.AudioSpeechNewParamsVoice
	timeout time.Duration
}

// Option is a functional option for Synthesizer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithVoice selects the OpenAI voice (e.g., "alloy", "nova").
func WithVoice(voice string) Option {
	return func(c *config) {
		c.voice = oai.AudioSpeechNewParamsVoice(voice)
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI speech Synthesizer. If model is empty,
// DefaultModel (tts-1) is used. sink receives the PCM stream of every
// utterance.
func New(apiKey string, model string, sink Sink, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaitts: apiKey must not be empty")
	}
	if sink == nil {
		return nil, fmt.Errorf("openaitts: sink must not be nil")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{voice: oai.AudioSpeechNewParamsVoiceAlloy}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Synthesizer{
		client: oai.NewClient(reqOpts...),
		model:  model,
		voice:  cfg.voice,
		sink:   sink,
	}, nil
}

// Speak synthesizes text and streams it to the sink. done fires when playback
// finishes or the request fails; it is dropped when Cancel (or a newer Speak)
// aborts the utterance. The speech API supports rate only — pitch and volume
// from settings must be applied by the sink.
func (s *Synthesizer) Speak(text string, settings types.VoiceSettings, done func()) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go s.speak(ctx, gen, text, settings, done)
}

func (s *Synthesizer) speak(ctx context.Context, gen uint64, text string, settings types.VoiceSettings, done func()) {
	defer s.clearCancel(gen)

	params := oai.AudioSpeechNewParams{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if settings.Rate > 0 && settings.Rate != 1.0 {
		params.Speed = param.NewOpt(settings.Rate)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("openaitts: synthesis request failed", "error", err)
		if done != nil {
			done()
		}
		return
	}
	defer resp.Body.Close()

	if err := s.sink(ctx, resp.Body); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("openaitts: playback failed", "error", err)
	}
	if done != nil {
		done()
	}
}

// Cancel aborts the in-flight utterance, if any, dropping its completion
// callback.
func (s *Synthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// clearCancel releases the cancel slot, but only when no newer Speak has
// claimed it since.
func (s *Synthesizer) clearCancel(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
