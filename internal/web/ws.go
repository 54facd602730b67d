package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/improvlive/improvd/internal/game"
	"github.com/improvlive/improvd/internal/observe"
	"github.com/improvlive/improvd/internal/transcript"
)

// View is the payload pushed to every audience websocket whenever the show
// changes: transcript, game progress, and room connection state in one frame.
type View struct {
	Active     bool                   `json:"active"`
	SessionID  string                 `json:"session_id,omitempty"`
	Player     string                 `json:"player,omitempty"`
	RoomState  string                 `json:"room_state"`
	Game       *game.Status           `json:"game,omitempty"`
	Transcript []transcript.Utterance `json:"transcript"`
}

// buildView assembles the current [View] from the session manager.
func (s *Server) buildView() View {
	sessions := s.app.Sessions()
	v := View{
		RoomState:  string(sessions.RoomState()),
		Transcript: []transcript.Utterance{},
	}

	info := sessions.Info()
	if info.SessionID == "" {
		return v
	}
	v.Active = true
	v.SessionID = info.SessionID
	v.Player = info.PlayerName

	if gm := sessions.Game(); gm != nil {
		st := gm.Status()
		v.Game = &st
	}
	if log := sessions.Transcript(); log != nil {
		v.Transcript = log.Snapshot()
	}
	return v
}

// hub fans change notifications out to all audience connections. Each
// connection registers a buffered wake channel; notifyAll never blocks.
type hub struct {
	mu      sync.Mutex
	conns   map[chan struct{}]struct{}
	tracked *transcript.Accumulator
}

func newHub() *hub {
	return &hub{conns: make(map[chan struct{}]struct{})}
}

func (h *hub) add(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[ch] = struct{}{}
}

func (h *hub) remove(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, ch)
}

// notifyAll wakes every connection that is not already pending a refresh.
func (h *hub) notifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.conns {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// track subscribes the hub to a show's transcript log exactly once. Logs die
// with their session, so stale subscriptions need no cleanup.
func (h *hub) track(log *transcript.Accumulator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if log == nil || log == h.tracked {
		return
	}
	h.tracked = log
	log.Subscribe(h.notifyAll)
}

// handleWatch upgrades the request to a websocket and streams [View] frames
// until the client goes away. A frame is sent immediately on connect and then
// whenever the view content changes.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept already wrote the HTTP error.
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// The feed is write-only; CloseRead discards client frames and cancels
	// the context when the client goes away.
	ctx := conn.CloseRead(r.Context())
	m := s.app.Metrics()
	m.ConnectedViews.Add(ctx, 1)
	defer m.ConnectedViews.Add(ctx, -1)

	notify := make(chan struct{}, 1)
	s.hub.add(notify)
	defer s.hub.remove(notify)

	var last []byte
	for {
		s.hub.track(s.app.Sessions().Transcript())

		payload, err := json.Marshal(s.buildView())
		if err != nil {
			observe.Logger(ctx).Error("view marshal failed", "err", err)
			return
		}
		if !bytes.Equal(payload, last) {
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
			last = payload
		}

		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-notify:
		}
	}
}
