// Package cue detects end-of-scene announcements in finalized player speech.
//
// The show's host waits for the player to close a performance with a phrase
// like "end scene" or "done" before reacting. Speech-to-text frequently
// mangles these short phrases ("and scene", "end seen"), so exact matching
// alone would miss real cues. The [Detector] combines two checks on the
// trailing words of an utterance:
//
//  1. Phonetic alignment: Double Metaphone codes are computed per token; a
//     cue phrase becomes a candidate when every one of its tokens shares a
//     code with the corresponding trailing token of the utterance.
//
//  2. Jaro-Winkler ranking: candidates are accepted when their string
//     similarity to the spoken tail exceeds the phonetic threshold
//     (default 0.70). When no phonetic candidate exists, a stricter pure
//     similarity pass (default 0.85) is applied, so near-exact matches
//     still cue without phonetic overlap.
//
// A Detector is read-only after construction and safe for concurrent use.
package cue

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// defaultPhrases are the built-in end-of-scene cues, matching what the host
// instructs the player to say.
var defaultPhrases = []string{
	"end scene",
	"end of scene",
	"done",
	"i'm done",
	"scene",
}

// Option is a functional option for configuring a [Detector].
type Option func(*Detector)

// WithPhrases replaces the built-in cue phrase list. Empty or blank phrases
// are dropped.
func WithPhrases(phrases []string) Option {
	return func(d *Detector) {
		cleaned := make([]string, 0, len(phrases))
		for _, p := range phrases {
			if strings.TrimSpace(p) != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			d.phrases = cleaned
		}
	}
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically aligned cue phrase to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(d *Detector) { d.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic alignment is found. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(d *Detector) { d.fuzzyThreshold = threshold }
}

// Detector matches the trailing words of finalized player utterances against
// a set of end-of-scene cue phrases.
type Detector struct {
	phrases           []string
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Detector configured with the supplied options. Without
// options it uses the built-in phrase list and default thresholds.
func New(opts ...Option) *Detector {
	d := &Detector{
		phrases:           defaultPhrases,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect reports whether text ends with an end-of-scene cue. On a match it
// returns the canonical cue phrase from the configured list.
//
// Matching is case-insensitive and ignores trailing punctuation. Only the
// trailing tokens of text are considered, so "that's my story, end scene"
// cues while "the end scene of the movie was great" followed by more words
// does not.
func (d *Detector) Detect(text string) (phrase string, ok bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return "", false
	}

	type candidate struct {
		phrase   string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, p := range d.phrases {
		phraseTokens := tokenize(p)
		if len(phraseTokens) == 0 || len(phraseTokens) > len(tokens) {
			continue
		}
		tail := tokens[len(tokens)-len(phraseTokens):]

		phonetic := tokensAlign(tail, phraseTokens)
		score := matchr.JaroWinkler(strings.Join(tail, " "), strings.Join(phraseTokens, " "), false)

		if phonetic {
			if score >= d.phoneticThreshold && (!best.phonetic || score > best.score) {
				best = candidate{phrase: p, score: score, phonetic: true}
			}
		} else if !best.phonetic {
			if score >= d.fuzzyThreshold && score > best.score {
				best = candidate{phrase: p, score: score}
			}
		}
	}

	if best.phrase == "" {
		return "", false
	}
	return best.phrase, true
}

// tokenize lowercases s, strips surrounding punctuation from each word, and
// returns the remaining non-empty tokens.
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"“”…—-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// tokensAlign reports whether every token pair shares at least one Double
// Metaphone code. Both slices must have equal length.
func tokensAlign(a, b []string) bool {
	for i := range a {
		if !codesOverlap(a[i], b[i]) {
			return false
		}
	}
	return true
}

// codesOverlap reports whether the Double Metaphone code sets of two words
// share an entry. Words too short to produce a code never overlap.
func codesOverlap(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || (bs != "" && x == bs) {
			return true
		}
	}
	return false
}
