// Package mcp exposes the Improv Battle game controls as tools on an MCP
// server, built on the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
//
// The AI host's dialogue runs on the external voice platform; the game state
// it narrates lives here. The platform's agent calls these tools to drive
// the show:
//
//	set_player_name       — record the player's name for the session
//	get_next_scenario     — fetch the scenario for the current round
//	record_round_reaction — store the host's reaction and advance the round
//	get_game_status       — inspect round, phase, and progress
//	end_game              — end the show early at the player's request
//
// Tools operate on whichever game the configured locator returns, so one
// server instance spans session restarts. The server is mounted on the main
// HTTP listener via the streamable-HTTP handler ([Server.Handler]).
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/improvlive/improvd/internal/game"
)

// serverVersion is reported to MCP clients during initialization.
const serverVersion = "1.0.0"

// ErrNoActiveGame is returned by every tool when the locator reports no game
// in progress.
var ErrNoActiveGame = fmt.Errorf("mcp: no active game; start a session first")

// Server wraps an MCP server whose tools mutate the active [game.Game].
type Server struct {
	server *mcpsdk.Server
	locate func() *game.Game
}

// New creates a Server whose tools operate on the game returned by locate.
// locate is called once per tool invocation and may return nil when no
// session is active.
func New(locate func() *game.Game) *Server {
	s := &Server{
		server: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: "improvd", Version: serverVersion},
			nil,
		),
		locate: locate,
	}
	s.registerTools()
	return s
}

// Handler returns an http.Handler serving the MCP streamable-HTTP protocol
// for this server.
func (s *Server) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(
		func(*http.Request) *mcpsdk.Server { return s.server },
		nil,
	)
}

// setPlayerNameArgs are the arguments for the set_player_name tool.
type setPlayerNameArgs struct {
	Name string `json:"name" jsonschema:"the player's name"`
}

// recordReactionArgs are the arguments for the record_round_reaction tool.
type recordReactionArgs struct {
	Reaction string `json:"reaction" jsonschema:"the host's reaction to the player's performance"`
}

// emptyArgs is used by tools that take no arguments.
type emptyArgs struct{}

// registerTools wires the five game tools into the underlying MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "set_player_name",
		Description: "Set the player's name at the start of the game.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, args setPlayerNameArgs) (*mcpsdk.CallToolResult, any, error) {
		g := s.locate()
		if g == nil {
			return nil, nil, ErrNoActiveGame
		}
		welcome, err := g.SetPlayerName(args.Name)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("player name set", "name", args.Name)
		return textResult(welcome), nil, nil
	})

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_next_scenario",
		Description: "Get the next improv scenario for the current round.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyArgs) (*mcpsdk.CallToolResult, any, error) {
		g := s.locate()
		if g == nil {
			return nil, nil, ErrNoActiveGame
		}
		scenario := g.NextScenario()
		slog.Info("scenario presented", "status", g.Status().Round)
		return textResult(scenario), nil, nil
	})

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "record_round_reaction",
		Description: "Record the host's reaction after a player's improv performance.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, args recordReactionArgs) (*mcpsdk.CallToolResult, any, error) {
		g := s.locate()
		if g == nil {
			return nil, nil, ErrNoActiveGame
		}
		next, err := g.RecordReaction(args.Reaction)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("round reaction recorded", "status", g.Status().Round)
		return textResult(next), nil, nil
	})

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_game_status",
		Description: "Get current game status and state.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyArgs) (*mcpsdk.CallToolResult, any, error) {
		g := s.locate()
		if g == nil {
			return nil, nil, ErrNoActiveGame
		}
		payload, err := json.Marshal(g.Status())
		if err != nil {
			return nil, nil, fmt.Errorf("mcp: marshal status: %w", err)
		}
		return textResult(string(payload)), nil, nil
	})

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "end_game",
		Description: "End the game early if the player wants to stop.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyArgs) (*mcpsdk.CallToolResult, any, error) {
		g := s.locate()
		if g == nil {
			return nil, nil, ErrNoActiveGame
		}
		signoff := g.End()
		slog.Info("game ended early by player")
		return textResult(signoff), nil, nil
	})
}

// textResult wraps a plain string in a tool call result.
func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

// Connect binds the server to transport for the lifetime of one client
// session. Primarily used by tests; HTTP traffic goes through [Server.Handler].
func (s *Server) Connect(ctx context.Context, transport mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}
