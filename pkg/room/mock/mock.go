// Package mock provides in-memory mock implementations of the
// [room.Platform] and [room.Session] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields the test can set to control return values.
//
// Typical usage:
//
//	sess := mock.NewSession()
//	platform := &mock.Platform{ConnectResult: sess}
//	got, err := platform.Connect(ctx, room.SessionConfig{RoomName: "improv-1"})
//	sess.Emit(room.Event{Kind: room.EventState, State: room.StateConnected})
//	sess.Finish()
package mock

import (
	"context"
	"sync"

	"github.com/improvlive/improvd/pkg/room"
)

// ─── Platform ─────────────────────────────────────────────────────────────────

// Platform is a mock implementation of [room.Platform].
// Set the exported Result fields before use; inspect ConnectCalls after.
type Platform struct {
	mu sync.Mutex

	// ConnectResult is returned by [Platform.Connect] when ConnectError is nil.
	ConnectResult *Session

	// ConnectError is returned by [Platform.Connect].
	ConnectError error

	// ConnectCalls records the config of every Connect call, in order.
	ConnectCalls []room.SessionConfig
}

// Connect implements [room.Platform].
func (p *Platform) Connect(_ context.Context, cfg room.SessionConfig) (room.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, cfg)
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	return p.ConnectResult, nil
}

// ─── Session ──────────────────────────────────────────────────────────────────

// Session is a mock implementation of [room.Session]. Tests push events with
// [Session.Emit] and end the stream with [Session.Finish]; Close also ends
// the stream.
type Session struct {
	mu sync.Mutex

	// CloseError is recorded but never returned; [room.Session.Close] is
	// documented to return nil on repeat calls, and the mock mirrors the
	// built-in client by always returning nil.
	CloseError error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	events   chan room.Event
	finished bool
}

// NewSession returns a Session with a buffered event stream ready for Emit.
func NewSession() *Session {
	return &Session{
		events: make(chan room.Event, 64),
	}
}

// Events implements [room.Session].
func (s *Session) Events() <-chan room.Event {
	return s.events
}

// Close implements [room.Session]. It ends the event stream.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	s.finishLocked()
	return nil
}

// Emit delivers ev to the session's event stream. Emit after Finish or Close
// is a silent no-op, mirroring events that race a platform disconnect.
func (s *Session) Emit(ev room.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.events <- ev
}

// Finish closes the event stream without counting as a Close call,
// simulating the platform ending the session.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked()
}

// finishLocked closes the event channel once. Must be called with s.mu held.
func (s *Session) finishLocked() {
	if !s.finished {
		s.finished = true
		close(s.events)
	}
}
