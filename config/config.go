// Package config loads the YAML configuration of the drepo command.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/types"
)

const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Models   []types.Schema `yaml:"models"`
	Fixtures string         `yaml:"fixtures,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Color bool   `yaml:"color"`
}

type StoreConfig struct {
	// Driver is one of memory, bolt or sqlite.
	Driver string `yaml:"driver"`
	// Path is the database file of the bolt and sqlite drivers.
	Path string `yaml:"path,omitempty"`
	// Codec names the value encoding of the bolt driver.
	Codec string `yaml:"codec,omitempty"`
}

// Default returns the configuration used when no file is given: an
// in-memory store, info logging and no models.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Color: true},
		Store: StoreConfig{Driver: DriverMemory},
	}
}

// Load reads the configuration at path over the defaults and validates
// it. Relative store and fixture paths are resolved against the directory
// of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Fixtures = resolve(dir, cfg.Fixtures)
	if cfg.Store.Path != ":memory:" {
		cfg.Store.Path = resolve(dir, cfg.Store.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("config.Load() - loaded", "path", path, "driver", cfg.Store.Driver, "models", len(cfg.Models))
	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Validate checks the driver, log level and model schemas.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverBolt, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: %q", fault.ErrUnsupportedDriver, c.Store.Driver)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if err := m.Validate(); err != nil {
			return err
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: duplicate model %q", fault.ErrInvalidSchema, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// Model returns the schema of the named model.
func (c *Config) Model(name string) (types.Schema, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return types.Schema{}, false
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
