// Package room defines the interfaces and types for connecting to the
// external real-time voice platform that hosts an Improv Battle session.
//
// The platform owns audio transport, speech recognition, turn detection, and
// the AI host's dialogue. Improvd only observes its event feed:
//
//   - [Platform] — opens a session for a named room and returns a [Session].
//   - [Session] — a live connection delivering an ordered stream of [Event]
//     values until the session ends.
//
// Events of all kinds arrive on a single channel so that consumers observe
// them in exactly the order the platform delivered them; the transcript log
// is defined by arrival order, not by any cross-stream timestamp
// reconciliation.
//
// This package lives under pkg/ because platform adapters beyond the built-in
// websocket one are expected to implement [Platform] and [Session].
package room

import "context"

// State is the remote connection/activity state of the voice session. Views
// map these to visual treatments; Improvd itself only relays them.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateListening    State = "listening"
	StateThinking     State = "thinking"
	StateSpeaking     State = "speaking"
)

// IsValid reports whether s is a recognised state.
func (s State) IsValid() bool {
	switch s {
	case StateDisconnected, StateConnecting, StateConnected,
		StateListening, StateThinking, StateSpeaking:
		return true
	}
	return false
}

// TranscriptionItem is one entry of the platform's agent transcription
// buffer.
type TranscriptionItem struct {
	// Text is the transcribed host speech.
	Text string `json:"text"`

	// Final indicates the item will not be revised further.
	Final bool `json:"final"`
}

// Participant describes the originator of a speech segment.
type Participant struct {
	// Identity is the platform-assigned participant identity.
	Identity string `json:"identity"`

	// IsAgent is true when the participant is the automated AI host.
	IsAgent bool `json:"is_agent"`
}

// Segment is a unit of transcribed participant speech.
type Segment struct {
	// Text is the transcribed content.
	Text string `json:"text"`

	// Final indicates the segment is complete and will not be revised.
	Final bool `json:"final"`
}

// EventKind discriminates the variants of [Event].
type EventKind string

const (
	// EventAgentTranscription carries the platform's full agent
	// transcription buffer. Only the last item is new on each notification;
	// consumers must read exactly that item.
	EventAgentTranscription EventKind = "agent_transcription"

	// EventSegments carries one or more speech segments from a single
	// participant.
	EventSegments EventKind = "segments"

	// EventState signals a connection/activity state change.
	EventState EventKind = "state"
)

// Event is a single notification from the voice platform. Kind selects which
// of the payload fields are meaningful.
type Event struct {
	Kind EventKind

	// Items is the agent transcription buffer ([EventAgentTranscription]).
	Items []TranscriptionItem

	// Participant identifies the speaker for [EventSegments].
	Participant Participant

	// Segments holds the participant's speech segments ([EventSegments]).
	Segments []Segment

	// State is the new session state ([EventState]).
	State State
}

// SessionConfig describes the session to open on the platform.
type SessionConfig struct {
	// RoomName is the platform room to join.
	RoomName string

	// PlayerName is the player's display name, forwarded to the platform so
	// the host can greet them.
	PlayerName string
}

// Session is an open connection to a platform room.
//
// Callers must call Close when the session is no longer needed; failing to
// do so leaks the underlying network connection. All methods are safe for
// concurrent use.
type Session interface {
	// Events returns the ordered event stream for this session. The channel
	// is closed when the session ends, whether by Close or by the platform
	// disconnecting.
	Events() <-chan Event

	// Close terminates the session and releases its resources. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Platform opens sessions against the external voice platform.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect opens a new session. The returned Session is live immediately.
	// Returns an error if the platform is unreachable, authentication fails,
	// or ctx is already cancelled.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
