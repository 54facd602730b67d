// Package web exposes the Improvd HTTP surface: the show control API, the
// audience websocket feed, the QR join code, the MCP tool endpoint for the
// host agent, Prometheus metrics, and health probes.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skip2/go-qrcode"

	"github.com/improvlive/improvd/internal/app"
	"github.com/improvlive/improvd/internal/archive"
	"github.com/improvlive/improvd/internal/config"
	"github.com/improvlive/improvd/internal/health"
	"github.com/improvlive/improvd/internal/observe"
	"github.com/improvlive/improvd/pkg/room"
)

// shutdownTimeout bounds the graceful HTTP shutdown when Run's context ends.
const shutdownTimeout = 10 * time.Second

// qrSize is the edge length in pixels of the generated join code.
const qrSize = 256

// recentShowsLimit caps the number of entries GET /api/shows returns.
const recentShowsLimit = 20

// Server serves the Improvd HTTP API.
type Server struct {
	cfg config.ServerConfig
	app *app.App
	hub *hub

	httpSrv *http.Server
}

// New builds a Server around the given application. The handler tree is
// assembled once here; Run starts listening.
func New(cfg config.ServerConfig, application *app.App) *Server {
	s := &Server{
		cfg: cfg,
		app: application,
		hub: newHub(),
	}

	// Wake audience connections on every room state change.
	application.Sessions().OnRoomState(func(room.State) { s.hub.notifyAll() })

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/show", s.handleStartShow)
	mux.HandleFunc("DELETE /api/show", s.handleStopShow)
	mux.HandleFunc("GET /api/show", s.handleShowStatus)
	mux.HandleFunc("GET /api/shows", s.handleRecentShows)
	mux.HandleFunc("GET /ws", s.handleWatch)
	mux.HandleFunc("GET /join/qr.png", s.handleJoinQR)
	mux.Handle("/mcp", application.MCP().Handler())
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(application.HealthCheckers()...).Register(mux)

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           observe.Middleware(application.Metrics())(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run listens until ctx is cancelled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLS != nil {
			err = s.httpSrv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		errCh <- err
	}()

	slog.Info("http server listening", "addr", s.cfg.ListenAddr, "tls", s.cfg.TLS != nil)

	select {
	case err := <-errCh:
		return fmt.Errorf("web: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return nil
}

// startShowRequest is the body of POST /api/show.
type startShowRequest struct {
	Name string `json:"name"`
}

// startShowResponse echoes the created session back to the caller.
type startShowResponse struct {
	SessionID string    `json:"session_id"`
	Player    string    `json:"player"`
	Room      string    `json:"room"`
	StartedAt time.Time `json:"started_at"`
}

// handleStartShow starts a show for the named player.
func (s *Server) handleStartShow(w http.ResponseWriter, r *http.Request) {
	var req startShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	info, err := s.app.Sessions().Start(r.Context(), req.Name)
	switch {
	case errors.Is(err, app.ErrBlankPlayerName):
		writeError(w, http.StatusBadRequest, "name must not be blank")
		return
	case errors.Is(err, app.ErrSessionActive):
		writeError(w, http.StatusConflict, "a show is already running")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("start show failed", "err", err)
		writeError(w, http.StatusBadGateway, "could not connect to the room")
		return
	}

	writeJSON(w, http.StatusCreated, startShowResponse{
		SessionID: info.SessionID,
		Player:    info.PlayerName,
		Room:      info.RoomName,
		StartedAt: info.StartedAt,
	})
}

// handleStopShow ends the running show.
func (s *Server) handleStopShow(w http.ResponseWriter, r *http.Request) {
	err := s.app.Sessions().Stop(r.Context())
	switch {
	case errors.Is(err, app.ErrNoSession):
		writeError(w, http.StatusNotFound, "no show is running")
	case err != nil:
		observe.Logger(r.Context()).Error("stop show failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not stop the show")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleShowStatus reports the current view state as plain JSON.
func (s *Server) handleShowStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildView())
}

// archivedShow is one entry of the GET /api/shows response.
type archivedShow struct {
	ID         int64           `json:"id"`
	SessionID  string          `json:"session_id"`
	Player     string          `json:"player"`
	Rounds     []archive.Round `json:"rounds"`
	Utterances int             `json:"utterances"`
	StartedAt  time.Time       `json:"started_at"`
	EndedAt    time.Time       `json:"ended_at"`
}

// handleRecentShows lists archived shows, most recently ended first.
func (s *Server) handleRecentShows(w http.ResponseWriter, r *http.Request) {
	store := s.app.Store()
	if store == nil {
		writeError(w, http.StatusNotFound, "the show archive is not configured")
		return
	}

	shows, err := store.RecentShows(r.Context(), recentShowsLimit)
	if err != nil {
		observe.Logger(r.Context()).Error("list archived shows failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not read the archive")
		return
	}

	out := make([]archivedShow, 0, len(shows))
	for _, sh := range shows {
		out = append(out, archivedShow{
			ID:         sh.ID,
			SessionID:  sh.SessionID,
			Player:     sh.Player,
			Rounds:     sh.Rounds,
			Utterances: sh.Utterances,
			StartedAt:  sh.StartedAt,
			EndedAt:    sh.EndedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleJoinQR renders a QR code pointing the audience at the watch page.
func (s *Server) handleJoinQR(w http.ResponseWriter, r *http.Request) {
	base := s.cfg.PublicURL
	if base == "" {
		base = "http://" + r.Host
	}
	joinURL := base + "/watch"
	if info := s.app.Sessions().Info(); info.RoomName != "" {
		joinURL += "?room=" + info.RoomName
	}

	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
	if err != nil {
		observe.Logger(r.Context()).Error("qr encode failed", "url", joinURL, "err", err)
		writeError(w, http.StatusInternalServerError, "could not render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "err", err)
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
