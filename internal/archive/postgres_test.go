package archive_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/improvlive/improvd/internal/archive"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if IMPROVD_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("IMPROVD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IMPROVD_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [archive.Postgres] with a clean schema and
// registers cleanup.
func newTestStore(t *testing.T) *archive.Postgres {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS show_rounds, shows`); err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	store, err := archive.NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPostgres_WriteAndReadBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Microsecond)
	ended := time.Now().UTC().Truncate(time.Microsecond)

	show := &archive.Show{
		SessionID:  "session-improv-20260829T1200Z",
		Player:     "Ada",
		Utterances: 42,
		StartedAt:  started,
		EndedAt:    ended,
		Rounds: []archive.Round{
			{Scenario: "cursed object return", HostReaction: "Inspired!"},
			{Scenario: "alien toaster support", HostReaction: "A bit rushed."},
		},
	}
	if err := store.WriteShow(ctx, show); err != nil {
		t.Fatalf("WriteShow: %v", err)
	}
	if show.ID == 0 {
		t.Fatal("WriteShow should assign a non-zero ID")
	}

	shows, err := store.RecentShows(ctx, 10)
	if err != nil {
		t.Fatalf("RecentShows: %v", err)
	}
	if len(shows) != 1 {
		t.Fatalf("len(RecentShows) = %d, want 1", len(shows))
	}

	got := shows[0]
	if got.Player != "Ada" || got.SessionID != show.SessionID || got.Utterances != 42 {
		t.Errorf("show = %+v, want the written values", got)
	}
	if !got.StartedAt.Equal(started) || !got.EndedAt.Equal(ended) {
		t.Errorf("timestamps = %v/%v, want %v/%v", got.StartedAt, got.EndedAt, started, ended)
	}
	if len(got.Rounds) != 2 {
		t.Fatalf("len(Rounds) = %d, want 2", len(got.Rounds))
	}
	if got.Rounds[0].Scenario != "cursed object return" || got.Rounds[1].HostReaction != "A bit rushed." {
		t.Errorf("rounds out of order or mangled: %+v", got.Rounds)
	}
}

func TestPostgres_RecentShowsOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		show := &archive.Show{
			SessionID: "session",
			Player:    string(rune('a' + i)),
			StartedAt: base,
			EndedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.WriteShow(ctx, show); err != nil {
			t.Fatalf("WriteShow %d: %v", i, err)
		}
	}

	shows, err := store.RecentShows(ctx, 2)
	if err != nil {
		t.Fatalf("RecentShows: %v", err)
	}
	if len(shows) != 2 {
		t.Fatalf("len(RecentShows) = %d, want limit of 2", len(shows))
	}
	if shows[0].Player != "c" || shows[1].Player != "b" {
		t.Errorf("order = [%s %s], want most recently ended first", shows[0].Player, shows[1].Player)
	}
}
