package cue_test

import (
	"testing"

	"github.com/improvlive/improvd/internal/transcript/cue"
)

func TestDetector_ExactPhrases(t *testing.T) {
	t.Parallel()

	d := cue.New()

	tests := []struct {
		text       string
		wantPhrase string
		wantOK     bool
	}{
		{"end scene", "end scene", true},
		{"End Scene!", "end scene", true},
		{"...and that's how the toaster learned to love. End scene.", "end scene", true},
		{"okay I'm done", "i'm done", true},
		{"done", "done", true},
		{"the latte is a portal, take it or leave it", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			phrase, ok := d.Detect(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Detect(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && phrase != tt.wantPhrase {
				t.Errorf("Detect(%q) phrase = %q, want %q", tt.text, phrase, tt.wantPhrase)
			}
		})
	}
}

func TestDetector_Mishearings(t *testing.T) {
	t.Parallel()

	d := cue.New()

	// Common STT manglings of "end scene" should still cue.
	for _, text := range []string{
		"and scene",
		"end seen",
		"and seen",
	} {
		if _, ok := d.Detect(text); !ok {
			t.Errorf("Detect(%q) = false, want cue match", text)
		}
	}
}

func TestDetector_MidSentencePhraseDoesNotCue(t *testing.T) {
	t.Parallel()

	d := cue.New()

	// The cue words appear but are not the trailing tokens.
	if phrase, ok := d.Detect("the end scene of that movie was something else entirely"); ok {
		t.Errorf("Detect() = (%q, true), want no match for mid-sentence phrase", phrase)
	}
}

func TestDetector_CustomPhrases(t *testing.T) {
	t.Parallel()

	d := cue.New(cue.WithPhrases([]string{"that's a wrap", "  "}))

	if phrase, ok := d.Detect("folks... that's a wrap"); !ok || phrase != "that's a wrap" {
		t.Errorf("Detect() = (%q, %v), want (%q, true)", phrase, ok, "that's a wrap")
	}

	// Built-in phrases are replaced, not merged.
	if phrase, ok := d.Detect("end scene"); ok {
		t.Errorf("Detect() = (%q, true), want no match after phrase override", phrase)
	}
}

func TestDetector_Thresholds(t *testing.T) {
	t.Parallel()

	strict := cue.New(
		cue.WithPhoneticThreshold(0.99),
		cue.WithFuzzyThreshold(0.99),
	)

	// At an effectively exact-match threshold, mishearings no longer cue.
	if _, ok := strict.Detect("and seen"); ok {
		t.Error("Detect(\"and seen\") matched at threshold 0.99, want no match")
	}
	if _, ok := strict.Detect("end scene"); !ok {
		t.Error("Detect(\"end scene\") = false, want exact phrase to match at any threshold")
	}
}
