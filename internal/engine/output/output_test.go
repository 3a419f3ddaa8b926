package output_test

import (
	"testing"

	"github.com/voxtask/voxtask/internal/engine/output"
	synthmock "github.com/voxtask/voxtask/pkg/provider/synthesis/mock"
	"github.com/voxtask/voxtask/pkg/types"
)

func TestSpeak_CompletesExactlyOnce(t *testing.T) {
	synth := &synthmock.Synthesizer{Manual: true}
	ctrl := output.NewController(synth, types.DefaultVoiceSettings())

	completed := 0
	ctrl.Speak("hello", func() { completed++ })

	if !ctrl.Speaking() {
		t.Fatal("Speaking() = false while utterance in flight")
	}

	synth.Finish()
	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
	if ctrl.Speaking() {
		t.Error("Speaking() = true after completion")
	}
}

func TestSpeak_SupersedesInFlightUtterance(t *testing.T) {
	synth := &synthmock.Synthesizer{Manual: true}
	ctrl := output.NewController(synth, types.DefaultVoiceSettings())

	var firstCompleted, secondCompleted bool
	ctrl.Speak("first", func() { firstCompleted = true })
	ctrl.Speak("second", func() { secondCompleted = true })

	if synth.CallCountCancel != 1 {
		t.Errorf("CallCountCancel = %d, want 1", synth.CallCountCancel)
	}

	synth.Finish()
	if firstCompleted {
		t.Error("superseded utterance's callback fired")
	}
	if !secondCompleted {
		t.Error("current utterance's callback did not fire")
	}
}

func TestCancel_DropsCallback(t *testing.T) {
	synth := &synthmock.Synthesizer{Manual: true}
	ctrl := output.NewController(synth, types.DefaultVoiceSettings())

	completed := false
	ctrl.Speak("doomed", func() { completed = true })
	ctrl.Cancel()

	synth.Finish()
	if completed {
		t.Error("cancelled utterance's callback fired")
	}
	if ctrl.Speaking() {
		t.Error("Speaking() = true after cancel")
	}
}

func TestCancel_NoopWhenIdle(t *testing.T) {
	synth := &synthmock.Synthesizer{}
	ctrl := output.NewController(synth, types.DefaultVoiceSettings())

	ctrl.Cancel()
	if synth.CallCountCancel != 0 {
		t.Errorf("CallCountCancel = %d, want 0 when nothing in flight", synth.CallCountCancel)
	}
}

func TestSpeak_SynchronousCompletionChain(t *testing.T) {
	// A synthesizer that completes inline must allow the completion callback
	// to issue the next Speak without deadlocking.
	synth := &synthmock.Synthesizer{}
	ctrl := output.NewController(synth, types.DefaultVoiceSettings())

	ctrl.Speak("one", func() {
		ctrl.Speak("two", nil)
	})

	if len(synth.Spoken) != 2 || synth.Spoken[1] != "two" {
		t.Errorf("Spoken = %v, want [one two]", synth.Spoken)
	}
}
