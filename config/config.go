// Package config loads the library assistant configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "library.yaml"

// Config is the application configuration.
type Config struct {
	Database Database `yaml:"database"`
	Loans    Loans    `yaml:"loans"`
	Log      Log      `yaml:"log"`

	// Timezone names the IANA zone used to render dates, or "Local".
	Timezone string `yaml:"timezone,omitempty"`

	// Agents is an optional YAML file replacing the built-in agent definitions.
	Agents string `yaml:"agents,omitempty"`

	path string
}

// Database selects the store.
type Database struct {
	// Driver is sqlite3, postgres or pgx.
	Driver string `yaml:"driver"`
	// DSN is a file path for sqlite3 and a connection string otherwise.
	DSN string `yaml:"dsn"`
}

// Loans holds circulation settings.
type Loans struct {
	DefaultDays int `yaml:"default_days"`
}

// Log holds logging settings.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: Database{Driver: "sqlite3", DSN: "library.db"},
		Loans:    Loans{DefaultDays: 14},
		Log:      Log{Level: "info", Format: "text"},
		Timezone: "Local",
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error when path is the default one.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// Validate checks the values that have a fixed domain.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres", "pgx":
	default:
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Loans.DefaultDays < 1 {
		return fmt.Errorf("loans.default_days must be at least 1, got %d", c.Loans.DefaultDays)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: expected text or json, got %q", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// NewLogger builds the slog logger described by Log.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
