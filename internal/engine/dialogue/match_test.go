package dialogue

import "testing"

func TestResolveOption_SubstringFirstMatchWins(t *testing.T) {
	opts := []string{"low", "medium", "high"}

	tests := []struct {
		answer string
		want   string
	}{
		{"high", "high"},
		{"i'd say high priority", "high"},
		{"make it low", "low"},
		{"medium i guess", "medium"},
		{"something else entirely", "medium"}, // fallback
	}
	for _, tt := range tests {
		if got := ResolveOption(tt.answer, opts, "medium"); got != tt.want {
			t.Errorf("ResolveOption(%q) = %q, want %q", tt.answer, got, tt.want)
		}
	}
}

func TestResolveOption_PhoneticFallback(t *testing.T) {
	opts := []string{"low", "medium", "high"}

	// "hi" is phonetically identical to "high"; a substring pass alone would
	// fall through to the default.
	if got := ResolveOption("hi priority", opts, "medium"); got != "high" {
		t.Errorf("ResolveOption(\"hi priority\") = %q, want high", got)
	}
}

func TestIsSkip(t *testing.T) {
	for _, answer := range []string{"", "skip", "no", "none", "nothing", "nope"} {
		if !IsSkip(answer) {
			t.Errorf("IsSkip(%q) = false, want true", answer)
		}
	}
	for _, answer := range []string{"buy milk", "not really sure"} {
		if IsSkip(answer) {
			t.Errorf("IsSkip(%q) = true, want false", answer)
		}
	}
}

func TestIsYes(t *testing.T) {
	for _, answer := range []string{"yes", "yeah", "sure", "okay"} {
		if !IsYes(answer) {
			t.Errorf("IsYes(%q) = false, want true", answer)
		}
	}
	if IsYes("no thanks") {
		t.Error("IsYes(\"no thanks\") = true, want false")
	}
}
