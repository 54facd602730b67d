package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
)

// Compile-time assertions that Client and wsSession satisfy the room interfaces.
var _ Platform = (*Client)(nil)
var _ Session = (*wsSession)(nil)

// eventBufferSize is the capacity of a session's event channel. The pump in
// internal/app drains continuously, so a small buffer only has to absorb
// bursts within one notification batch.
const eventBufferSize = 32

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithHTTPHeader adds extra headers to the WebSocket handshake request.
func WithHTTPHeader(header http.Header) Option {
	return func(c *Client) { c.header = header }
}

// Client implements [Platform] over the voice platform's server-side event
// socket. Each Connect call dials one WebSocket per session and decodes the
// platform's JSON event frames into [Event] values.
type Client struct {
	baseURL string
	apiKey  string
	header  http.Header
}

// New creates a Client for the platform event socket at baseURL (a ws:// or
// wss:// URL without trailing slash), authenticating with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect implements [Platform]. It dials the per-room event endpoint and
// starts the receive loop. The returned Session delivers events until the
// socket closes.
func (c *Client) Connect(ctx context.Context, cfg SessionConfig) (Session, error) {
	if cfg.RoomName == "" {
		return nil, fmt.Errorf("room: session config must have a non-empty room name")
	}

	wsURL := fmt.Sprintf("%s/rooms/%s/events?player=%s",
		c.baseURL,
		url.PathEscape(cfg.RoomName),
		url.QueryEscape(cfg.PlayerName),
	)

	header := http.Header{}
	for k, v := range c.header {
		header[k] = v
	}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("room: dial %q: %w", wsURL, err)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &wsSession{
		conn:   conn,
		events: make(chan Event, eventBufferSize),
		room:   cfg.RoomName,
		ctx:    sessCtx,
		cancel: cancel,
	}
	go sess.receiveLoop()

	return sess, nil
}

// wireEvent is the platform's JSON frame format. Exactly one payload group is
// populated per frame, selected by Type.
type wireEvent struct {
	Type string `json:"type"`

	// type == "agent_transcription": the full transcription buffer.
	Items []TranscriptionItem `json:"items,omitempty"`

	// type == "segments"
	Participant *Participant `json:"participant,omitempty"`
	Segments    []Segment    `json:"segments,omitempty"`

	// Publication descriptor accompanying segments. Delivered by the
	// platform but intentionally not consumed.
	Publication json.RawMessage `json:"publication,omitempty"`

	// type == "state"
	State State `json:"state,omitempty"`
}

// wsSession is a live WebSocket-backed [Session].
type wsSession struct {
	conn   *websocket.Conn
	events chan Event
	room   string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// Events implements [Session].
func (s *wsSession) Events() <-chan Event {
	return s.events
}

// Close implements [Session]. It cancels the receive loop and closes the
// underlying socket.
func (s *wsSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// receiveLoop reads frames from the WebSocket, decodes them, and forwards
// them on the events channel in arrival order. It owns the events channel
// and closes it on exit.
func (s *wsSession) receiveLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				slog.Warn("room: event socket closed", "room", s.room, "err", err)
			}
			return
		}

		var we wireEvent
		if err := json.Unmarshal(data, &we); err != nil {
			slog.Warn("room: malformed event frame", "room", s.room, "err", err)
			continue
		}

		ev, ok := decodeEvent(we)
		if !ok {
			slog.Debug("room: unknown event type", "room", s.room, "type", we.Type)
			continue
		}

		select {
		case s.events <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

// decodeEvent maps a wire frame to an [Event]. Returns ok=false for frame
// types this client does not consume.
func decodeEvent(we wireEvent) (Event, bool) {
	switch EventKind(we.Type) {
	case EventAgentTranscription:
		return Event{Kind: EventAgentTranscription, Items: we.Items}, true
	case EventSegments:
		ev := Event{Kind: EventSegments, Segments: we.Segments}
		if we.Participant != nil {
			ev.Participant = *we.Participant
		}
		return ev, true
	case EventState:
		if !we.State.IsValid() {
			return Event{}, false
		}
		return Event{Kind: EventState, State: we.State}, true
	}
	return Event{}, false
}
