// Package archive persists summaries of completed Improv Battle shows.
//
// Only finished games are archived: the player's name, the rounds played
// with the host's reactions, timing, and an utterance count. The live
// transcript log is deliberately NOT stored — it exists only for the
// duration of a session.
//
// The built-in implementation is PostgreSQL-backed ([NewPostgres]);
// archiving is optional and the application runs without a store configured.
package archive

import (
	"context"
	"time"
)

// Round is one archived improv round.
type Round struct {
	// Scenario is the prompt the player performed.
	Scenario string `json:"scenario"`

	// HostReaction is the host's recorded feedback.
	HostReaction string `json:"host_reaction"`
}

// Show is the archived summary of one completed game.
type Show struct {
	// ID is assigned by the store on write; zero until then.
	ID int64

	// SessionID identifies the session the show ran in.
	SessionID string

	// Player is the player's name as recorded during the game. May be empty
	// when the show ended before the host learned it.
	Player string

	// Rounds are the completed rounds in play order.
	Rounds []Round

	// Utterances is the number of transcript entries the session produced.
	Utterances int

	// StartedAt and EndedAt bound the show.
	StartedAt time.Time
	EndedAt   time.Time
}

// Store persists and retrieves completed shows.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// WriteShow archives show and fills in its ID.
	WriteShow(ctx context.Context, show *Show) error

	// RecentShows returns up to limit shows, most recently ended first,
	// with their rounds populated.
	RecentShows(ctx context.Context, limit int) ([]Show, error)

	// Close releases the store's resources.
	Close()
}
