package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Environment variable names for overrides.
const (
	EnvConfig  = "SPROUT_CONFIG"
	EnvBaseURL = "SPROUT_SERVER_URL"
	EnvLogLvl  = "SPROUT_LOG_LEVEL"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience: users can start without creating a config file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration with the override chain applied:
// defaults -> config file -> environment variables. CLI flags are applied by
// the command layer on top of the returned Config.
func Resolve(cliConfigPath string) (*Config, error) {
	path := DefaultConfigPath()
	if env := os.Getenv(EnvConfig); env != "" {
		path = env
	}

	if cliConfigPath != "" {
		path = cliConfigPath
	}

	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if url := os.Getenv(EnvBaseURL); url != "" {
		cfg.Server.BaseURL = url
	}

	if lvl := os.Getenv(EnvLogLvl); lvl != "" {
		cfg.Logging.Level = lvl
	}

	return cfg, nil
}
