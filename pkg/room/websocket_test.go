package room_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/improvlive/improvd/pkg/room"
)

// startEventServer runs a WebSocket endpoint that records the handshake
// request and plays back frames to every connection.
func startEventServer(t *testing.T, frames []string) (*httptest.Server, <-chan *http.Request) {
	t.Helper()

	requests := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(context.Background())

		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, frame := range frames {
			if err := c.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		c.Close(websocket.StatusNormalClosure, "done")
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

// collect drains the session's event channel until it closes or the test
// deadline hits.
func collect(t *testing.T, sess room.Session) []room.Event {
	t.Helper()

	var events []room.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events", len(events))
		}
	}
}

func TestClient_EventOrderAndDecoding(t *testing.T) {
	t.Parallel()

	frames := []string{
		`{"type":"state","state":"connected"}`,
		`{"type":"agent_transcription","items":[{"text":"Welcome","final":false},{"text":"Welcome to the show!","final":true}]}`,
		`{"type":"segments","participant":{"identity":"player-1","is_agent":false},"segments":[{"text":"hi there","final":true}],"publication":{"track":"mic"}}`,
		`{"type":"telemetry","detail":"ignored"}`,
		`{"type":"state","state":"speaking"}`,
	}
	srv, requests := startEventServer(t, frames)

	client := room.New(srv.URL, "secret-key")
	sess, err := client.Connect(context.Background(), room.SessionConfig{
		RoomName:   "improv-1",
		PlayerName: "Ada",
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer sess.Close()

	events := collect(t, sess)

	// The unknown "telemetry" frame is dropped; everything else arrives in
	// delivery order.
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}
	if events[0].Kind != room.EventState || events[0].State != room.StateConnected {
		t.Errorf("events[0] = %+v, want connected state", events[0])
	}
	if events[1].Kind != room.EventAgentTranscription {
		t.Fatalf("events[1].Kind = %q, want %q", events[1].Kind, room.EventAgentTranscription)
	}
	if got := len(events[1].Items); got != 2 {
		t.Errorf("len(events[1].Items) = %d, want full buffer of 2", got)
	}
	if last := events[1].Items[len(events[1].Items)-1]; last.Text != "Welcome to the show!" || !last.Final {
		t.Errorf("last item = %+v, want final %q", last, "Welcome to the show!")
	}
	if events[2].Kind != room.EventSegments {
		t.Fatalf("events[2].Kind = %q, want %q", events[2].Kind, room.EventSegments)
	}
	if events[2].Participant.Identity != "player-1" || events[2].Participant.IsAgent {
		t.Errorf("events[2].Participant = %+v, want player-1 / not agent", events[2].Participant)
	}
	if events[3].Kind != room.EventState || events[3].State != room.StateSpeaking {
		t.Errorf("events[3] = %+v, want speaking state", events[3])
	}

	req := <-requests
	if got := req.Header.Get("Authorization"); got != "Bearer secret-key" {
		t.Errorf("Authorization header = %q, want bearer key", got)
	}
	if got := req.URL.Query().Get("player"); got != "Ada" {
		t.Errorf("player query param = %q, want %q", got, "Ada")
	}
}

func TestClient_ConnectRequiresRoomName(t *testing.T) {
	t.Parallel()

	client := room.New("ws://localhost:1", "key")
	if _, err := client.Connect(context.Background(), room.SessionConfig{}); err == nil {
		t.Fatal("Connect() with empty room name should return error")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	srv, _ := startEventServer(t, nil)

	client := room.New(srv.URL, "")
	sess, err := client.Connect(context.Background(), room.SessionConfig{RoomName: "improv-2"})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Errorf("first Close() error: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	// The event channel must close after Close.
	collect(t, sess)
}
