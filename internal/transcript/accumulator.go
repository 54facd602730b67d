// Package transcript maintains the authoritative utterance log of a live
// improv session.
//
// The external voice platform delivers two independent, noisy streams of
// speech-to-text fragments: host (agent) transcriptions and per-participant
// speech segments. The [Accumulator] converts both into a single clean,
// append-only, insertion-ordered log suitable for direct rendering by the
// session view:
//
//   - Partial (non-final) fragments are ignored; only finalized speech is
//     logged.
//   - Text is trimmed, and fragments that are empty after trimming are
//     discarded.
//   - Streaming transcription commonly re-delivers the same final text more
//     than once. Immediate re-deliveries are compressed by an
//     adjacent-duplicate rule: a fragment is dropped when the log's last
//     entry has the same speaker and the same trimmed text. Non-adjacent
//     repeats (the same phrase spoken again in a later turn) are preserved.
//
// The log is created empty at session start, only ever appended to, and
// discarded at teardown. It is never persisted.
//
// All methods are safe for concurrent use.
package transcript

import (
	"slices"
	"strings"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Speaker identifies which side of the conversation produced an utterance.
type Speaker string

const (
	// SpeakerAgent is the automated AI host.
	SpeakerAgent Speaker = "agent"

	// SpeakerUser is the human player.
	SpeakerUser Speaker = "user"
)

// Utterance is one finalized spoken statement attributed to a single speaker.
type Utterance struct {
	// ID is a unique, stable identifier assigned at insertion time. It
	// carries no further meaning; views use it for list reconciliation.
	ID string `json:"id"`

	// Speaker attributes the utterance to the agent or the user.
	Speaker Speaker `json:"speaker"`

	// Text is the finalized spoken content, trimmed and non-empty.
	Text string `json:"text"`

	// Timestamp is the insertion time, not the speech time.
	Timestamp time.Time `json:"timestamp"`
}

// Fragment is a raw speech-to-text fragment as delivered by the voice
// platform, before any validation.
type Fragment struct {
	// Text is the transcribed content. May be empty or untrimmed.
	Text string

	// Final indicates the fragment is complete and will not be revised.
	Final bool
}

// Disposition reports what the accumulator did with a fragment.
type Disposition string

const (
	// DispositionAppended means the fragment became a new log entry.
	DispositionAppended Disposition = "appended"

	// DispositionNotFinal means the fragment was a partial and was ignored.
	DispositionNotFinal Disposition = "not_final"

	// DispositionEmpty means the fragment was empty after trimming.
	DispositionEmpty Disposition = "empty"

	// DispositionDuplicate means the fragment repeated the log's last entry
	// for the same speaker and was compressed away.
	DispositionDuplicate Disposition = "duplicate"

	// DispositionAgentEcho means a segment on the user channel originated
	// from the agent participant and was rejected.
	DispositionAgentEcho Disposition = "agent_echo"
)

// Appended reports whether d indicates a new log entry was created.
func (d Disposition) Appended() bool { return d == DispositionAppended }

// Accumulator converts the platform's two fragment streams into one ordered,
// deduplicated utterance log.
//
// All methods are safe for concurrent use. Subscriber callbacks are invoked
// outside the accumulator's lock; callbacks may safely call [Accumulator.Snapshot].
type Accumulator struct {
	mu      sync.Mutex
	entries []Utterance
	subs    []func()
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// AgentUtterance records a finalized agent transcription fragment.
//
// Non-final fragments, fragments that are empty after trimming, and
// fragments equal to the log's last entry when that entry is also an agent
// utterance are discarded. The returned [Disposition] states which rule
// applied.
func (a *Accumulator) AgentUtterance(f Fragment) Disposition {
	return a.append(SpeakerAgent, f)
}

// UserSegment records a finalized speech segment from a session participant.
//
// participantIsAgent must be true when the segment's originating participant
// is the automated agent; such segments are rejected outright — this channel
// only records the human player. Validation and adjacent-duplicate
// suppression otherwise match [Accumulator.AgentUtterance], keyed on
// [SpeakerUser].
func (a *Accumulator) UserSegment(participantIsAgent bool, f Fragment) Disposition {
	if participantIsAgent {
		return DispositionAgentEcho
	}
	return a.append(SpeakerUser, f)
}

// Snapshot returns a copy of the current log in insertion order. Callers own
// the returned slice and may not observe later appends through it.
func (a *Accumulator) Snapshot() []Utterance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries)
}

// Len returns the number of entries in the log.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Clear resets the log to empty and notifies subscribers. A cleared
// accumulator behaves exactly like a fresh one for all subsequent fragments.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	a.entries = nil
	subs := slices.Clone(a.subs)
	a.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Subscribe registers fn to be called after every log change (append or
// clear). Callbacks run synchronously on the mutating goroutine, in
// registration order; keep them cheap and pull fresh state via Snapshot.
func (a *Accumulator) Subscribe(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
}

// append applies the validation rules and, when they pass, inserts a new
// entry for speaker with a freshly generated ID.
func (a *Accumulator) append(speaker Speaker, f Fragment) Disposition {
	if !f.Final {
		return DispositionNotFinal
	}
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return DispositionEmpty
	}

	a.mu.Lock()
	if last, ok := a.last(); ok && last.Speaker == speaker && last.Text == text {
		a.mu.Unlock()
		return DispositionDuplicate
	}
	a.entries = append(a.entries, Utterance{
		ID:        nanoid.Must(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	subs := slices.Clone(a.subs)
	a.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return DispositionAppended
}

// last returns the most recent entry. Must be called with a.mu held.
func (a *Accumulator) last() (Utterance, bool) {
	if len(a.entries) == 0 {
		return Utterance{}, false
	}
	return a.entries[len(a.entries)-1], true
}
