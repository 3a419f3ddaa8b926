package wsasr

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/voxtask/voxtask/pkg/provider/recognition"
)

func silentSource(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	r, err := New("wss://asr.example.com/v1/listen", "test-key", silentSource)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := r.buildURL(recognition.Config{
		Continuous:     true,
		InterimResults: true,
		Language:       "en-US",
	})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en-US", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "interim_results", "true", q.Get("interim_results"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
}

func TestBuildURL_Options(t *testing.T) {
	r, err := New("wss://asr.example.com/v1/listen", "key", silentSource,
		WithModel("base"), WithSampleRate(48000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := r.buildURL(recognition.Config{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "sample_rate", "48000", q.Get("sample_rate"))
	assertEqual(t, "interim_results", "false", q.Get("interim_results"))
	if _, ok := u.Query()["language"]; ok {
		t.Error("expected no 'language' param when config leaves it empty")
	}
}

// ---- JSON parsing tests ----

func TestParseResult_Final(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": true,
		"channel": {
			"alternatives": [{
				"transcript": "hi voice",
				"confidence": 0.95
			}]
		}
	}`)

	tr, ok := parseResult(raw)
	if !ok {
		t.Fatal("expected ok=true for valid Results message")
	}
	if !tr.IsFinal {
		t.Error("expected IsFinal=true")
	}
	assertEqual(t, "text", "hi voice", tr.Text)
	if tr.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", tr.Confidence)
	}
}

func TestParseResult_Partial(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": false,
		"channel": {"alternatives": [{"transcript": "hi", "confidence": 0.6}]}
	}`)

	tr, ok := parseResult(raw)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if tr.IsFinal {
		t.Error("expected IsFinal=false for partial result")
	}
}

func TestParseResult_Ignored(t *testing.T) {
	cases := map[string][]byte{
		"metadata":           []byte(`{"type":"Metadata","request_id":"abc"}`),
		"empty alternatives": []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[]}}`),
		"empty transcript":   []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":""}]}}`),
		"invalid json":       []byte(`{invalid`),
	}
	for name, raw := range cases {
		if _, ok := parseResult(raw); ok {
			t.Errorf("%s: expected ok=false", name)
		}
	}
}

// ---- Constructor tests ----

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "key", silentSource); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := New("wss://asr.example.com", "", silentSource); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New("wss://asr.example.com", "key", nil); err == nil {
		t.Error("expected error for nil audio source")
	}
}

func TestNew_Defaults(t *testing.T) {
	r, err := New("wss://asr.example.com", "key", silentSource)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertEqual(t, "model", defaultModel, r.model)
	if r.sampleRate != defaultSampleRate {
		t.Errorf("expected sampleRate %d, got %d", defaultSampleRate, r.sampleRate)
	}
}

// ---- helpers ----

func assertEqual(t *testing.T, label, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %q, got %q", label, want, got)
	}
}
