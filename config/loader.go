package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads the tool configuration.
//
// A non-empty path names the file to read, and it must exist. With an
// empty path the ESPFLASH_CONFIG variable and then the locations from
// Paths are searched; when none exists the defaults are used. Environment
// overrides are applied on top of the file, and the result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = discover()
	}
	if path == "" {
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// discover returns the first configuration file that exists, starting
// with the ESPFLASH_CONFIG override and then the standard locations. An
// ESPFLASH_CONFIG path is returned without a stat so a missing file
// fails loudly instead of falling back.
func discover() string {
	if p := os.Getenv("ESPFLASH_CONFIG"); p != "" {
		return p
	}
	for _, p := range Paths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides lays ESPFLASH_* environment variables over the
// configuration. A malformed ESPFLASH_BAUD is ignored rather than
// dropping the configured speed.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ESPFLASH_PORT"); v != "" {
		cfg.Connection.Port = v
	}
	if v := os.Getenv("ESPFLASH_BAUD"); v != "" {
		var baud int
		if _, err := fmt.Sscanf(v, "%d", &baud); err == nil {
			cfg.Connection.Baud = baud
		}
	}
	if v := os.Getenv("ESPFLASH_FLASH_SIZE"); v != "" {
		cfg.Flash.Size = v
	}
	if v := os.Getenv("ESPFLASH_FORMAT"); v != "" {
		cfg.Format = v
	}
}
