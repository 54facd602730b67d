// Package game implements the Improv Battle state machine: a fixed number of
// improv rounds, each pairing a scenario prompt with the host's recorded
// reaction to the player's performance.
//
// The AI host drives the game through the tool surface in internal/mcp; the
// [Game] itself holds no dialogue logic. State lives only for the duration of
// a session — a completed game may be summarised into the archive at session
// stop, but in-flight state is never persisted.
//
// All exported methods are safe for concurrent use.
package game

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// defaultMaxRounds is the number of improv rounds in a standard show.
const defaultMaxRounds = 3

// Phase describes where in the show flow a game currently is.
type Phase string

const (
	// PhaseIntro covers the welcome and between-round banter; the host may
	// present the next scenario at any time.
	PhaseIntro Phase = "intro"

	// PhaseAwaitingImprov means a scenario has been presented and the player
	// is performing; the host must not advance until the scene ends.
	PhaseAwaitingImprov Phase = "awaiting_improv"

	// PhaseDone means all rounds are played or the game ended early.
	PhaseDone Phase = "done"
)

// Round records one completed improv round.
type Round struct {
	// Scenario is the prompt the player performed.
	Scenario string `json:"scenario"`

	// HostReaction is the host's recorded feedback on the performance.
	HostReaction string `json:"host_reaction"`
}

// Status is a point-in-time summary of a game, shaped for the host's
// get_game_status tool and for view payloads.
type Status struct {
	// Player is the player's name, empty until set.
	Player string `json:"player"`

	// Round is a "current/max" progress string, e.g. "1/3".
	Round string `json:"round"`

	// Phase is the current [Phase].
	Phase Phase `json:"phase"`

	// RoundsCompleted is the number of rounds with a recorded reaction.
	RoundsCompleted int `json:"rounds_completed"`
}

// Summary captures a finished game for archival.
type Summary struct {
	Player    string
	Rounds    []Round
	StartedAt time.Time
	EndedAt   time.Time
}

// Option configures a [Game] during construction.
type Option func(*Game)

// WithMaxRounds overrides the number of rounds in the show. Values below 1
// are ignored.
func WithMaxRounds(n int) Option {
	return func(g *Game) {
		if n >= 1 {
			g.maxRounds = n
		}
	}
}

// WithScenarios replaces the built-in scenario rotation. Blank entries are
// dropped; an all-blank list leaves the built-ins in place.
func WithScenarios(scenarios []string) Option {
	return func(g *Game) {
		cleaned := make([]string, 0, len(scenarios))
		for _, s := range scenarios {
			if strings.TrimSpace(s) != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			g.scenarios = cleaned
		}
	}
}

// Game holds the state of one Improv Battle session.
type Game struct {
	mu              sync.Mutex
	playerName      string
	currentRound    int
	maxRounds       int
	rounds          []Round
	phase           Phase
	currentScenario string
	scenarios       []string
	startedAt       time.Time
}

// New creates a Game in the intro phase with no player name set.
func New(opts ...Option) *Game {
	g := &Game{
		maxRounds: defaultMaxRounds,
		phase:     PhaseIntro,
		scenarios: builtinScenarios,
		startedAt: time.Now().UTC(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// SetPlayerName records the player's name at the start of the game and
// returns the host's welcome line. The name must be non-empty after trimming.
func (g *Game) SetPlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("game: player name must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.playerName = name
	return fmt.Sprintf("Great! Welcome to Improv Battle, %s!", name), nil
}

// NextScenario returns the scenario for the current round and moves the game
// into [PhaseAwaitingImprov]. When all rounds are already complete it leaves
// the state untouched and tells the host to close the show instead.
func (g *Game) NextScenario() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.currentRound >= g.maxRounds {
		return "All rounds complete! Time for the closing summary."
	}

	scenario := g.scenarios[g.currentRound%len(g.scenarios)]
	g.currentScenario = scenario
	g.phase = PhaseAwaitingImprov
	return scenario
}

// RecordReaction stores the host's reaction to the performance of the
// current scenario, completes the round, and advances the game. It returns
// the instruction line for the host's next move.
//
// Returns an error when no scenario is in play.
func (g *Game) RecordReaction(reaction string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.currentScenario == "" {
		return "", fmt.Errorf("game: no scenario in play; present one before recording a reaction")
	}

	g.rounds = append(g.rounds, Round{
		Scenario:     g.currentScenario,
		HostReaction: reaction,
	})
	g.currentScenario = ""
	g.currentRound++

	if g.currentRound >= g.maxRounds {
		g.phase = PhaseDone
		return "All rounds complete! Give your closing summary now.", nil
	}
	g.phase = PhaseIntro
	return fmt.Sprintf("Round %d of %d complete. Ready for the next scenario!", g.currentRound, g.maxRounds), nil
}

// End terminates the game early at the player's request and returns the
// host's sign-off line. Ending an already-done game is a no-op.
func (g *Game) End() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = PhaseDone
	return "Thanks for playing Improv Battle! You were great!"
}

// Status returns a point-in-time summary of the game.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		Player:          g.playerName,
		Round:           fmt.Sprintf("%d/%d", g.currentRound, g.maxRounds),
		Phase:           g.phase,
		RoundsCompleted: len(g.rounds),
	}
}

// Phase returns the current phase.
func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// PlayerName returns the player's name, or "" when not yet set.
func (g *Game) PlayerName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerName
}

// Rounds returns a copy of the completed rounds in play order.
func (g *Game) Rounds() []Round {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.rounds)
}

// Summarise snapshots the game into an archival [Summary] stamped with the
// given end time.
func (g *Game) Summarise(endedAt time.Time) Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Summary{
		Player:    g.playerName,
		Rounds:    slices.Clone(g.rounds),
		StartedAt: g.startedAt,
		EndedAt:   endedAt,
	}
}
