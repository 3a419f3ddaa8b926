package openaitts

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voxtask/voxtask/pkg/types"
)

func discardSink(_ context.Context, pcm io.Reader) error {
	_, err := io.Copy(io.Discard, pcm)
	return err
}

// TestNew_MissingAPIKey checks that an empty API key is rejected.
func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New("", "tts-1", discardSink)
	if err == nil {
		t.Fatal("expected error for empty API key")
	}
}

// TestNew_MissingSink checks that a nil sink is rejected.
func TestNew_MissingSink(t *testing.T) {
	_, err := New("sk-test", "tts-1", nil)
	if err == nil {
		t.Fatal("expected error for nil sink")
	}
}

// TestNew_DefaultModel verifies that an empty model string defaults to tts-1.
func TestNew_DefaultModel(t *testing.T) {
	s, err := New("sk-test", "", discardSink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.model != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, s.model)
	}
}

// TestSpeak_StreamsToSink runs a full Speak against a stub speech endpoint and
// verifies the PCM bytes reach the sink and done fires.
func TestSpeak_StreamsToSink(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/pcm")
		w.Write(pcm)
	}))
	defer srv.Close()

	var got bytes.Buffer
	sink := func(_ context.Context, r io.Reader) error {
		_, err := io.Copy(&got, r)
		return err
	}

	s, err := New("sk-test", "tts-1", sink, WithBaseURL(srv.URL), WithVoice("nova"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{})
	s.Speak("hello there", types.DefaultVoiceSettings(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("done callback never fired")
	}
	if !bytes.Equal(got.Bytes(), pcm) {
		t.Errorf("sink received %v, want %v", got.Bytes(), pcm)
	}
}
