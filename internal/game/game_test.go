package game_test

import (
	"strings"
	"testing"
	"time"

	"github.com/improvlive/improvd/internal/game"
)

func TestGame_FullShow(t *testing.T) {
	t.Parallel()

	g := game.New()

	if g.Phase() != game.PhaseIntro {
		t.Fatalf("new game phase = %q, want %q", g.Phase(), game.PhaseIntro)
	}

	welcome, err := g.SetPlayerName("  Ada ")
	if err != nil {
		t.Fatalf("SetPlayerName() error: %v", err)
	}
	if !strings.Contains(welcome, "Ada") {
		t.Errorf("welcome line %q should contain the trimmed player name", welcome)
	}
	if g.PlayerName() != "Ada" {
		t.Errorf("PlayerName() = %q, want %q", g.PlayerName(), "Ada")
	}

	reactions := []string{
		"That was hilarious! I loved the teapot bit.",
		"Hmm, that felt a bit rushed.",
		"Okay, interesting choice with the accent.",
	}
	var scenarios []string
	for i, reaction := range reactions {
		scenario := g.NextScenario()
		if scenario == "" {
			t.Fatalf("round %d: NextScenario() returned empty scenario", i+1)
		}
		scenarios = append(scenarios, scenario)
		if g.Phase() != game.PhaseAwaitingImprov {
			t.Fatalf("round %d: phase = %q after scenario, want %q", i+1, g.Phase(), game.PhaseAwaitingImprov)
		}

		if _, err := g.RecordReaction(reaction); err != nil {
			t.Fatalf("round %d: RecordReaction() error: %v", i+1, err)
		}
	}

	if g.Phase() != game.PhaseDone {
		t.Errorf("phase after final round = %q, want %q", g.Phase(), game.PhaseDone)
	}

	rounds := g.Rounds()
	if len(rounds) != 3 {
		t.Fatalf("len(Rounds()) = %d, want 3", len(rounds))
	}
	for i, r := range rounds {
		if r.Scenario != scenarios[i] {
			t.Errorf("round %d scenario = %q, want %q", i+1, r.Scenario, scenarios[i])
		}
		if r.HostReaction != reactions[i] {
			t.Errorf("round %d reaction = %q, want %q", i+1, r.HostReaction, reactions[i])
		}
	}

	// A fourth scenario request tells the host to close instead of advancing.
	if msg := g.NextScenario(); !strings.Contains(msg, "closing summary") {
		t.Errorf("NextScenario() after final round = %q, want closing-summary instruction", msg)
	}
}

func TestGame_SetPlayerNameRejectsBlank(t *testing.T) {
	t.Parallel()

	g := game.New()
	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := g.SetPlayerName(name); err == nil {
			t.Errorf("SetPlayerName(%q) should return error", name)
		}
	}
}

func TestGame_RecordReactionWithoutScenario(t *testing.T) {
	t.Parallel()

	g := game.New()
	if _, err := g.RecordReaction("nice"); err == nil {
		t.Fatal("RecordReaction() without a scenario in play should return error")
	}

	// Reaction recording consumes the scenario; a second record must fail.
	g.NextScenario()
	if _, err := g.RecordReaction("first"); err != nil {
		t.Fatalf("RecordReaction() error: %v", err)
	}
	if _, err := g.RecordReaction("second"); err == nil {
		t.Fatal("second RecordReaction() for the same scenario should return error")
	}
}

func TestGame_ScenarioRotationWraps(t *testing.T) {
	t.Parallel()

	g := game.New(
		game.WithMaxRounds(3),
		game.WithScenarios([]string{"scenario A", "scenario B"}),
	)

	want := []string{"scenario A", "scenario B", "scenario A"}
	for i, w := range want {
		got := g.NextScenario()
		if got != w {
			t.Errorf("round %d scenario = %q, want %q", i+1, got, w)
		}
		if _, err := g.RecordReaction("ok"); err != nil {
			t.Fatalf("round %d: RecordReaction() error: %v", i+1, err)
		}
	}
}

func TestGame_Status(t *testing.T) {
	t.Parallel()

	g := game.New()
	g.SetPlayerName("Sam")
	g.NextScenario()

	st := g.Status()
	if st.Player != "Sam" {
		t.Errorf("Status().Player = %q, want %q", st.Player, "Sam")
	}
	if st.Round != "0/3" {
		t.Errorf("Status().Round = %q, want %q", st.Round, "0/3")
	}
	if st.Phase != game.PhaseAwaitingImprov {
		t.Errorf("Status().Phase = %q, want %q", st.Phase, game.PhaseAwaitingImprov)
	}
	if st.RoundsCompleted != 0 {
		t.Errorf("Status().RoundsCompleted = %d, want 0", st.RoundsCompleted)
	}

	g.RecordReaction("great")
	if st := g.Status(); st.Round != "1/3" || st.RoundsCompleted != 1 {
		t.Errorf("Status() after one round = %+v, want round 1/3 with 1 completed", st)
	}
}

func TestGame_EndEarly(t *testing.T) {
	t.Parallel()

	g := game.New()
	g.NextScenario()

	line := g.End()
	if line == "" {
		t.Error("End() should return the host's sign-off line")
	}
	if g.Phase() != game.PhaseDone {
		t.Errorf("phase after End() = %q, want %q", g.Phase(), game.PhaseDone)
	}

	// Ending again is a no-op.
	g.End()
	if g.Phase() != game.PhaseDone {
		t.Errorf("phase after second End() = %q, want %q", g.Phase(), game.PhaseDone)
	}
}

func TestGame_Summarise(t *testing.T) {
	t.Parallel()

	g := game.New()
	g.SetPlayerName("Ada")
	g.NextScenario()
	g.RecordReaction("loved it")

	ended := time.Now().UTC()
	sum := g.Summarise(ended)

	if sum.Player != "Ada" {
		t.Errorf("Summary.Player = %q, want %q", sum.Player, "Ada")
	}
	if len(sum.Rounds) != 1 {
		t.Fatalf("len(Summary.Rounds) = %d, want 1", len(sum.Rounds))
	}
	if !sum.EndedAt.Equal(ended) {
		t.Errorf("Summary.EndedAt = %v, want %v", sum.EndedAt, ended)
	}
	if sum.StartedAt.After(sum.EndedAt) {
		t.Errorf("Summary.StartedAt %v is after EndedAt %v", sum.StartedAt, sum.EndedAt)
	}
}
