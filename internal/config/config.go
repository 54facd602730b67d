// Package config provides the configuration schema and loader for the
// Improvd game show server.
package config

// LogLevel controls log verbosity for the Improvd server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Improvd.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Room    RoomConfig    `yaml:"room"`
	Game    GameConfig    `yaml:"game"`
	Archive ArchiveConfig `yaml:"archive"`
	Observe ObserveConfig `yaml:"observe"`
}

// ServerConfig holds network and logging settings for the Improvd server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// PublicURL is the externally reachable base URL of the server, used to
	// build audience join links and QR codes. Falls back to ListenAddr when
	// empty.
	PublicURL string `yaml:"public_url"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// RoomConfig holds the connection settings for the realtime voice room
// platform that hosts the show.
type RoomConfig struct {
	// URL is the base URL of the room platform's event gateway.
	URL string `yaml:"url"`

	// APIKey authenticates Improvd against the room platform.
	APIKey string `yaml:"api_key"`

	// RoomPrefix is prepended to generated room names so shows from one
	// deployment are distinguishable on a shared platform. Defaults to
	// "improv" when empty.
	RoomPrefix string `yaml:"room_prefix"`
}

// GameConfig tunes the shape of a show.
type GameConfig struct {
	// MaxRounds is the number of improv rounds per show. Zero means the
	// built-in default of three rounds.
	MaxRounds int `yaml:"max_rounds"`

	// Scenarios overrides the built-in scenario list when non-empty.
	Scenarios []string `yaml:"scenarios"`

	// EndScenePhrases overrides the spoken phrases that mark the end of a
	// performance when non-empty.
	EndScenePhrases []string `yaml:"end_scene_phrases"`
}

// ArchiveConfig configures persistence of completed shows.
type ArchiveConfig struct {
	// PostgresDSN is the connection string for the show archive. When empty,
	// completed shows are not persisted.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ObserveConfig identifies this service in exported telemetry.
type ObserveConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}
