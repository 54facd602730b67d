// Package app wires all Improvd subsystems into a running application.
//
// The App struct owns the shared subsystems: the room platform client, the
// optional show archive, the metrics instruments, the session manager, and
// the MCP tool surface the host agent calls into. The HTTP layer is built on
// top of an App by the web package.
//
// For testing, inject mock implementations via functional options
// (WithPlatform, WithStore, WithMetrics). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/improvlive/improvd/internal/archive"
	"github.com/improvlive/improvd/internal/config"
	"github.com/improvlive/improvd/internal/health"
	improvmcp "github.com/improvlive/improvd/internal/mcp"
	"github.com/improvlive/improvd/internal/observe"
	"github.com/improvlive/improvd/pkg/room"
)

// App owns all subsystem lifetimes for the Improvd game show server.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	platform room.Platform
	store    archive.Store

	sessions *SessionManager
	mcp      *improvmcp.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithPlatform injects a room platform instead of creating a websocket
// client from config.
func WithPlatform(p room.Platform) Option {
	return func(a *App) { a.platform = p }
}

// WithStore injects a show archive instead of connecting to PostgreSQL.
func WithStore(s archive.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.platform == nil {
		a.platform = room.New(cfg.Room.URL, cfg.Room.APIKey)
	}
	if a.store == nil && cfg.Archive.PostgresDSN != "" {
		store, err := archive.NewPostgres(ctx, cfg.Archive.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("app: init archive: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		slog.Info("show archive enabled")
	}

	a.sessions = NewSessionManager(SessionManagerConfig{
		Platform: a.platform,
		Config:   cfg,
		Store:    a.store,
		Metrics:  a.metrics,
	})
	a.mcp = improvmcp.New(a.sessions.Game)

	return a, nil
}

// Sessions returns the session manager.
func (a *App) Sessions() *SessionManager { return a.sessions }

// MCP returns the MCP tool server the host agent connects to.
func (a *App) MCP() *improvmcp.Server { return a.mcp }

// Metrics returns the application's metric instruments.
func (a *App) Metrics() *observe.Metrics { return a.metrics }

// Store returns the show archive, or nil when archiving is not configured.
func (a *App) Store() archive.Store { return a.store }

// HealthCheckers returns the readiness checks for the configured subsystems.
func (a *App) HealthCheckers() []health.Checker {
	var checkers []health.Checker
	if pg, ok := a.store.(*archive.Postgres); ok {
		checkers = append(checkers, health.Checker{Name: "archive", Check: pg.Ping})
	}
	return checkers
}

// Shutdown stops any active show and tears down all subsystems in reverse
// order. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		if err := a.sessions.Stop(ctx); err != nil && !errors.Is(err, ErrNoSession) {
			errs = append(errs, fmt.Errorf("app: stop session: %w", err))
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		slog.Info("app shut down")
	})
	return errors.Join(errs...)
}
