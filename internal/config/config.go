// Package config loads the board configuration from YAML, with sensible
// defaults when no file exists.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one board process.
type Config struct {
	// Listen is the host:port the board server binds to.
	Listen string `yaml:"listen"`
	// CanvasID names the shared canvas this process hosts or joins.
	CanvasID string `yaml:"canvas_id"`
	// DataPath is the SQLite file backing the hosted board. Empty means
	// in-memory only: the board vanishes when the host exits.
	DataPath string `yaml:"data_path"`
	// MDNS toggles LAN advertisement of a hosted board.
	MDNS bool `yaml:"mdns"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Listen:   ":8888",
		CanvasID: "shared",
		DataPath: "sharedink.db",
		MDNS:     true,
	}
}

// Load reads the config at path over the defaults. A missing file is not an
// error; it just means defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
