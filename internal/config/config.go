// Package config implements TOML configuration loading and platform-specific
// path resolution for sprout. Precedence is defaults -> config file ->
// environment variables -> CLI flags; CLI flags always win.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Sync    SyncConfig    `toml:"sync"`
	Images  ImagesConfig  `toml:"images"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig holds the remote service endpoints and HTTP client behavior.
type ServerConfig struct {
	BaseURL      string `toml:"base_url"`
	WebsocketURL string `toml:"websocket_url"`
	Timeout      string `toml:"timeout"`
	IdentityFile string `toml:"identity_file"`
}

// SyncConfig controls mutation debouncing and post-mutation re-sync behavior.
type SyncConfig struct {
	ActionCooldown string `toml:"action_cooldown"`
}

// ImagesConfig controls where captured plant photos are persisted and which
// directory the identify watcher observes.
type ImagesConfig struct {
	InboxDir string `toml:"inbox_dir"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults applied when the config file is absent or a field is unset.
const (
	defaultBaseURL        = "https://api.sprout.garden"
	defaultTimeout        = "30s"
	defaultActionCooldown = "2s"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: defaultBaseURL,
			Timeout: defaultTimeout,
		},
		Sync: SyncConfig{
			ActionCooldown: defaultActionCooldown,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// TimeoutDuration parses the configured HTTP timeout.
func (s ServerConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid server timeout %q: %w", s.Timeout, err)
	}

	return d, nil
}

// CooldownDuration parses the configured mutation debounce window.
func (s SyncConfig) CooldownDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.ActionCooldown)
	if err != nil {
		return 0, fmt.Errorf("config: invalid action cooldown %q: %w", s.ActionCooldown, err)
	}

	return d, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures deep inside the sync engine.
func Validate(cfg *Config) error {
	if cfg.Server.BaseURL == "" {
		return fmt.Errorf("config: server base_url must not be empty")
	}

	if _, err := cfg.Server.TimeoutDuration(); err != nil {
		return err
	}

	if _, err := cfg.Sync.CooldownDuration(); err != nil {
		return err
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging format must be \"text\" or \"json\", got %q", cfg.Logging.Format)
	}

	return nil
}
