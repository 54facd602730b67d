package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/improvlive/improvd/internal/archive"
	"github.com/improvlive/improvd/internal/config"
	"github.com/improvlive/improvd/internal/game"
	"github.com/improvlive/improvd/internal/observe"
	"github.com/improvlive/improvd/internal/transcript"
	"github.com/improvlive/improvd/internal/transcript/cue"
	"github.com/improvlive/improvd/pkg/room"
)

// stopPumpTimeout bounds how long Stop waits for the event pump to drain
// after the room session is closed.
const stopPumpTimeout = 5 * time.Second

var (
	// ErrSessionActive is returned by Start when a show is already running.
	ErrSessionActive = errors.New("session: a show is already active")

	// ErrNoSession is returned by Stop when no show is running.
	ErrNoSession = errors.New("session: no active show to stop")

	// ErrBlankPlayerName is returned by Start when the player name is empty
	// after trimming.
	ErrBlankPlayerName = errors.New("session: player name must not be blank")
)

// SessionInfo holds metadata about an active show session.
type SessionInfo struct {
	// SessionID is the unique identifier for this session.
	SessionID string

	// PlayerName is the contestant the show was started for.
	PlayerName string

	// RoomName is the realtime room the session is connected to.
	RoomName string

	// StartedAt is when the session was started.
	StartedAt time.Time
}

// SessionManager manages the lifecycle of show sessions.
// Only one show can be active at a time (enforced by mutex).
// All exported methods are safe for concurrent use.
type SessionManager struct {
	mu       sync.Mutex
	active   bool
	info     SessionInfo
	sess     room.Session
	log      *transcript.Accumulator
	gm       *game.Game
	cancel   context.CancelFunc
	pumpDone chan struct{}

	// stateMu guards the room connection state and its listeners. The event
	// pump takes stateMu only, never mu, so Stop can wait for the pump while
	// holding mu.
	stateMu   sync.RWMutex
	roomState room.State
	stateSubs []func(room.State)

	// Dependencies injected at construction.
	platform room.Platform
	cfg      *config.Config
	store    archive.Store
	metrics  *observe.Metrics
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
// Store may be nil; completed shows are then not archived.
type SessionManagerConfig struct {
	Platform room.Platform
	Config   *config.Config
	Store    archive.Store
	Metrics  *observe.Metrics
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	return &SessionManager{
		platform:  cfg.Platform,
		cfg:       cfg.Config,
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		roomState: room.StateDisconnected,
	}
}

// Start begins a new show for the named player. It connects to the realtime
// room, creates a fresh transcript log and game, and starts the event pump.
//
// The player name is validated once here; an empty name (after trimming)
// returns [ErrBlankPlayerName]. Returns [ErrSessionActive] if a show is
// already running.
func (sm *SessionManager) Start(ctx context.Context, playerName string) (SessionInfo, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return SessionInfo{}, ErrBlankPlayerName
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.active {
		return SessionInfo{}, fmt.Errorf("%w (id=%s)", ErrSessionActive, sm.info.SessionID)
	}

	roomPrefix := sm.cfg.Room.RoomPrefix
	if roomPrefix == "" {
		roomPrefix = "improv"
	}
	now := time.Now().UTC()
	sessionID := fmt.Sprintf("session-%s-%s",
		sanitizeName(playerName),
		now.Format("20060102T1504Z"),
	)
	roomName := fmt.Sprintf("%s-%s", roomPrefix, sanitizeName(playerName))

	sess, err := sm.platform.Connect(ctx, room.SessionConfig{
		RoomName:   roomName,
		PlayerName: playerName,
	})
	if err != nil {
		return SessionInfo{}, fmt.Errorf("session: connect room %q: %w", roomName, err)
	}

	var gameOpts []game.Option
	if sm.cfg.Game.MaxRounds > 0 {
		gameOpts = append(gameOpts, game.WithMaxRounds(sm.cfg.Game.MaxRounds))
	}
	if len(sm.cfg.Game.Scenarios) > 0 {
		gameOpts = append(gameOpts, game.WithScenarios(sm.cfg.Game.Scenarios))
	}
	var cueOpts []cue.Option
	if len(sm.cfg.Game.EndScenePhrases) > 0 {
		cueOpts = append(cueOpts, cue.WithPhrases(sm.cfg.Game.EndScenePhrases))
	}

	log := transcript.New()
	gm := game.New(gameOpts...)
	det := cue.New(cueOpts...)

	// Session-scoped context for the event pump; outlives the Start call.
	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go sm.pump(pumpCtx, done, sess, log, det)

	sm.active = true
	sm.sess = sess
	sm.log = log
	sm.gm = gm
	sm.cancel = cancel
	sm.pumpDone = done
	sm.info = SessionInfo{
		SessionID:  sessionID,
		PlayerName: playerName,
		RoomName:   roomName,
		StartedAt:  now,
	}
	sm.setRoomState(room.StateConnecting)
	sm.metrics.ActiveSessions.Add(ctx, 1)

	slog.Info("show started",
		"session_id", sessionID,
		"room", roomName,
		"player", playerName,
	)

	return sm.info, nil
}

// Stop gracefully ends the active show. It closes the room session, waits
// for the event pump to drain, archives the completed game (best effort),
// and discards the transcript log.
//
// Returns [ErrNoSession] if no show is active.
func (sm *SessionManager) Stop(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.active {
		return ErrNoSession
	}

	info := sm.info

	// Close the room first so the pump stops producing entries.
	if err := sm.sess.Close(); err != nil {
		slog.Warn("session: room close error", "session_id", info.SessionID, "err", err)
	}
	sm.cancel()
	select {
	case <-sm.pumpDone:
	case <-time.After(stopPumpTimeout):
		slog.Warn("session: event pump did not drain in time", "session_id", info.SessionID)
	case <-ctx.Done():
	}

	now := time.Now().UTC()
	summary := sm.gm.Summarise(now)
	utterances := sm.log.Len()

	if sm.store != nil {
		show := &archive.Show{
			SessionID:  info.SessionID,
			Player:     summary.Player,
			Rounds:     archiveRounds(summary.Rounds),
			Utterances: utterances,
			StartedAt:  info.StartedAt,
			EndedAt:    now,
		}
		if err := sm.store.WriteShow(ctx, show); err != nil {
			slog.Warn("session: archive write failed", "session_id", info.SessionID, "err", err)
		} else {
			slog.Info("show archived", "session_id", info.SessionID, "show_id", show.ID)
		}
	}

	sm.metrics.RoundsCompleted.Add(ctx, int64(len(summary.Rounds)))
	if sm.gm.Phase() == game.PhaseDone {
		sm.metrics.ShowsCompleted.Add(ctx, 1)
	}
	sm.metrics.ActiveSessions.Add(ctx, -1)

	// The transcript log lives only for the duration of the show.
	sm.log.Clear()

	slog.Info("show stopped",
		"session_id", info.SessionID,
		"player", summary.Player,
		"rounds", len(summary.Rounds),
		"utterances", utterances,
		"duration", now.Sub(info.StartedAt),
	)

	sm.active = false
	sm.sess = nil
	sm.log = nil
	sm.gm = nil
	sm.cancel = nil
	sm.pumpDone = nil
	sm.info = SessionInfo{}
	sm.setRoomState(room.StateDisconnected)

	return nil
}

// IsActive reports whether a show is currently running.
func (sm *SessionManager) IsActive() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.active
}

// Info returns metadata about the active show.
// Returns the zero value if no show is active.
func (sm *SessionManager) Info() SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.info
}

// Transcript returns the active show's transcript log.
// Returns nil if no show is active.
func (sm *SessionManager) Transcript() *transcript.Accumulator {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.log
}

// Game returns the active show's game.
// Returns nil if no show is active.
func (sm *SessionManager) Game() *game.Game {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.gm
}

// RoomState returns the last known room connection state.
func (sm *SessionManager) RoomState() room.State {
	sm.stateMu.RLock()
	defer sm.stateMu.RUnlock()
	return sm.roomState
}

// OnRoomState registers a listener for room connection state changes.
// Listeners persist across shows and are invoked from the event pump.
func (sm *SessionManager) OnRoomState(fn func(room.State)) {
	sm.stateMu.Lock()
	defer sm.stateMu.Unlock()
	sm.stateSubs = append(sm.stateSubs, fn)
}

// setRoomState updates the cached room state and notifies listeners.
func (sm *SessionManager) setRoomState(st room.State) {
	sm.stateMu.Lock()
	sm.roomState = st
	subs := sm.stateSubs
	sm.stateMu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// pump consumes room events until the session ends, routing them into the
// transcript log and the cue detector. It must not take sm.mu.
func (sm *SessionManager) pump(ctx context.Context, done chan struct{}, sess room.Session, log *transcript.Accumulator, det *cue.Detector) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.Events():
			if !ok {
				return
			}
			sm.handleEvent(ctx, ev, log, det)
		}
	}
}

// handleEvent applies one room event to the transcript log.
func (sm *SessionManager) handleEvent(ctx context.Context, ev room.Event, log *transcript.Accumulator, det *cue.Detector) {
	start := time.Now()

	switch ev.Kind {
	case room.EventAgentTranscription:
		if len(ev.Items) == 0 {
			break
		}
		// Only the newest item carries fresh content; earlier items were
		// already delivered by previous events.
		item := ev.Items[len(ev.Items)-1]
		disp := log.AgentUtterance(transcript.Fragment{Text: item.Text, Final: item.Final})
		sm.recordDisposition(ctx, transcript.SpeakerAgent, disp)

	case room.EventSegments:
		for _, seg := range ev.Segments {
			disp := log.UserSegment(ev.Participant.IsAgent, transcript.Fragment{Text: seg.Text, Final: seg.Final})
			sm.recordDisposition(ctx, transcript.SpeakerUser, disp)
			if !ev.Participant.IsAgent && seg.Final {
				if phrase, ok := det.Detect(seg.Text); ok {
					slog.Info("end-of-scene cue detected",
						"phrase", phrase,
						"text", seg.Text,
						"participant", ev.Participant.Identity,
					)
					sm.metrics.RecordCue(ctx, phrase)
				}
			}
		}

	case room.EventState:
		sm.setRoomState(ev.State)
		slog.Debug("room state changed", "state", string(ev.State))
	}

	sm.metrics.RoomEventDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("kind", string(ev.Kind))),
	)
}

// recordDisposition bumps the accepted or discarded counter for a fragment.
func (sm *SessionManager) recordDisposition(ctx context.Context, speaker transcript.Speaker, disp transcript.Disposition) {
	if disp.Appended() {
		sm.metrics.RecordUtterance(ctx, string(speaker))
		return
	}
	sm.metrics.RecordDiscard(ctx, string(speaker), string(disp))
}

// archiveRounds converts game rounds to their archive form.
func archiveRounds(rounds []game.Round) []archive.Round {
	out := make([]archive.Round, len(rounds))
	for i, r := range rounds {
		out[i] = archive.Round{Scenario: r.Scenario, HostReaction: r.HostReaction}
	}
	return out
}

// sanitizeName replaces spaces with hyphens and lowercases a name
// for use in session and room IDs.
func sanitizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	return name
}
