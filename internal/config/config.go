// Package config loads the optional dynamesh TOML configuration file.
//
// Every field has a command line flag of the same meaning. Flags given
// explicitly on the command line win over file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/logant/DynamoExperiments/internal/traverse"
)

// DefaultFile is the file name looked up when no --config flag is given.
const DefaultFile = "dynamesh.toml"

// Config holds settings shared by all commands.
type Config struct {
	Format     string `toml:"format"`
	Verbose    bool   `toml:"verbose"`
	Database   string `toml:"database"`
	Workers    int    `toml:"workers"`
	MaxDepth   int    `toml:"max_depth"`
	ViewScoped bool   `toml:"view_scoped"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:   "text",
		Workers:  1,
		MaxDepth: traverse.DefaultMaxDepth,
	}
}

// Load reads a TOML file on top of Default. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse config: %s", strict.String())
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional loads path when it exists and returns Default otherwise.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("invalid config: format %q must be text or json", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid config: workers must be non-negative, got %d", c.Workers)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("invalid config: max_depth must be non-negative, got %d", c.MaxDepth)
	}
	return nil
}
