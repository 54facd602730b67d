package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that *Postgres satisfies [Store].
var _ Store = (*Postgres)(nil)

const ddlShows = `
CREATE TABLE IF NOT EXISTS shows (
    id         BIGSERIAL    PRIMARY KEY,
    session_id TEXT         NOT NULL,
    player     TEXT         NOT NULL DEFAULT '',
    utterances INTEGER      NOT NULL DEFAULT 0,
    started_at TIMESTAMPTZ  NOT NULL,
    ended_at   TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shows_ended_at
    ON shows (ended_at DESC);
`

const ddlShowRounds = `
CREATE TABLE IF NOT EXISTS show_rounds (
    id            BIGSERIAL PRIMARY KEY,
    show_id       BIGINT    NOT NULL REFERENCES shows (id) ON DELETE CASCADE,
    round_index   INTEGER   NOT NULL,
    scenario      TEXT      NOT NULL,
    host_reaction TEXT      NOT NULL DEFAULT '',
    UNIQUE (show_id, round_index)
);
`

// Postgres is the PostgreSQL-backed [Store].
//
// All methods are safe for concurrent use; the underlying [pgxpool.Pool]
// handles connection management.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at dsn and ensures the archive schema
// exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// migrate applies the archive DDL. All statements are idempotent.
func (p *Postgres) migrate(ctx context.Context) error {
	for _, ddl := range []string{ddlShows, ddlShowRounds} {
		if _, err := p.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("archive: migrate: %w", err)
		}
	}
	return nil
}

// WriteShow implements [Store]. The show and its rounds are written in one
// transaction.
func (p *Postgres) WriteShow(ctx context.Context, show *Show) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertShow = `
		INSERT INTO shows (session_id, player, utterances, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if err := tx.QueryRow(ctx, insertShow,
		show.SessionID,
		show.Player,
		show.Utterances,
		show.StartedAt,
		show.EndedAt,
	).Scan(&show.ID); err != nil {
		return fmt.Errorf("archive: insert show: %w", err)
	}

	const insertRound = `
		INSERT INTO show_rounds (show_id, round_index, scenario, host_reaction)
		VALUES ($1, $2, $3, $4)`

	for i, r := range show.Rounds {
		if _, err := tx.Exec(ctx, insertRound, show.ID, i, r.Scenario, r.HostReaction); err != nil {
			return fmt.Errorf("archive: insert round %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// RecentShows implements [Store].
func (p *Postgres) RecentShows(ctx context.Context, limit int) ([]Show, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
		SELECT id, session_id, player, utterances, started_at, ended_at
		FROM   shows
		ORDER  BY ended_at DESC
		LIMIT  $1`

	rows, err := p.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: query shows: %w", err)
	}
	shows, err := collectShows(rows)
	if err != nil {
		return nil, err
	}

	for i := range shows {
		rounds, err := p.showRounds(ctx, shows[i].ID)
		if err != nil {
			return nil, err
		}
		shows[i].Rounds = rounds
	}
	return shows, nil
}

// Ping reports whether the database is reachable. Used as a readiness check.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close implements [Store].
func (p *Postgres) Close() {
	p.pool.Close()
}

// showRounds loads the rounds of one show in play order.
func (p *Postgres) showRounds(ctx context.Context, showID int64) ([]Round, error) {
	const q = `
		SELECT scenario, host_reaction
		FROM   show_rounds
		WHERE  show_id = $1
		ORDER  BY round_index`

	rows, err := p.pool.Query(ctx, q, showID)
	if err != nil {
		return nil, fmt.Errorf("archive: query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		var r Round
		if err := rows.Scan(&r.Scenario, &r.HostReaction); err != nil {
			return nil, fmt.Errorf("archive: scan round: %w", err)
		}
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate rounds: %w", err)
	}
	return rounds, nil
}

// collectShows drains rows into Show values without rounds.
func collectShows(rows pgx.Rows) ([]Show, error) {
	defer rows.Close()

	var shows []Show
	for rows.Next() {
		var (
			s                  Show
			startedAt, endedAt time.Time
		)
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Player, &s.Utterances, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("archive: scan show: %w", err)
		}
		s.StartedAt = startedAt.UTC()
		s.EndedAt = endedAt.UTC()
		shows = append(shows, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate shows: %w", err)
	}
	return shows, nil
}
