// Package config loads flowedit's configuration from the config directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/flowedit/pkg/command"
	"github.com/dshills/flowedit/pkg/logging"
	"github.com/dshills/flowedit/pkg/validation"
)

const (
	// FileName is the config file inside the config directory.
	FileName = "config.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FLOWEDIT_"

	// EnvConfigDir selects the config directory.
	EnvConfigDir = EnvPrefix + "CONFIG_DIR"

	defaultDirName = ".flowedit"
)

// Config holds flowedit's settings.
type Config struct {
	Version         string `yaml:"version"`
	HistoryCapacity int    `yaml:"history_capacity"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	JournalPath     string `yaml:"journal_path"`
	CatalogPath     string `yaml:"catalog_path,omitempty"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`

	// Dir is the directory the config was loaded from.
	Dir string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version:         "1.0",
		HistoryCapacity: command.DefaultCapacity,
		LogLevel:        "info",
		LogFormat:       logging.FormatText,
		JournalPath:     "journal.db",
	}
}

// ResolveDir picks the config directory.
// Environment variable always takes priority (for testing), then flagDir,
// then ~/.flowedit.
func ResolveDir(flagDir string) (string, error) {
	if envDir := os.Getenv(EnvConfigDir); envDir != "" {
		return envDir, nil
	}
	if flagDir != "" {
		return flagDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultDirName), nil
}

// Load reads dir/config.yaml, writing the defaults first if it does not
// exist, then applies an optional dir/.env and FLOWEDIT_* environment
// overrides.
func Load(dir string) (*Config, error) {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := Default()
	configFile := filepath.Join(dir, FileName)
	data, err := os.ReadFile(configFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.WriteFile(configFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Dir = dir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookup("HISTORY_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sHISTORY_CAPACITY: %w", EnvPrefix, err)
		}
		c.HistoryCapacity = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := lookup("JOURNAL_PATH"); ok {
		c.JournalPath = v
	}
	if v, ok := lookup("CATALOG_PATH"); ok {
		c.CatalogPath = v
	}
	if v, ok := lookup("METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sMETRICS_ENABLED: %w", EnvPrefix, err)
		}
		c.MetricsEnabled = b
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive, got %d", c.HistoryCapacity)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.LogFormat)
	}
	if c.JournalPath == "" {
		return errors.New("journal_path cannot be empty")
	}
	return nil
}

// ResolvePath resolves a configured path. Absolute paths are used as given;
// relative ones must stay inside the config directory.
func (c *Config) ResolvePath(p string) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	return validation.ResolveWithin(c.Dir, p)
}

// JournalFile returns the resolved journal database path.
func (c *Config) JournalFile() (string, error) {
	return c.ResolvePath(c.JournalPath)
}

// CatalogFile returns the resolved module catalog path, or "" for the
// built-in catalog.
func (c *Config) CatalogFile() (string, error) {
	return c.ResolvePath(c.CatalogPath)
}
