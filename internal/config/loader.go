package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when server.tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when server.tls is set"))
		}
	}

	// Room platform
	if cfg.Room.URL == "" {
		errs = append(errs, errors.New("room.url is required"))
	}
	if cfg.Room.APIKey == "" {
		slog.Warn("room.api_key is empty; the room platform may reject the connection")
	}

	// Game
	if cfg.Game.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("game.max_rounds %d must not be negative", cfg.Game.MaxRounds))
	}
	for i, s := range cfg.Game.Scenarios {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("game.scenarios[%d] is blank", i))
		}
	}
	for i, p := range cfg.Game.EndScenePhrases {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("game.end_scene_phrases[%d] is blank", i))
		}
	}

	// Archive
	if cfg.Archive.PostgresDSN == "" {
		slog.Warn("archive.postgres_dsn is empty; completed shows will not be persisted")
	}

	return errors.Join(errs...)
}
