package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/calstats/pkg/report"
)

const (
	xdgAppName = "calstats"
	configFile = "config.yaml"

	// EnvHome overrides the configuration directory.
	EnvHome = "CALSTATS_HOME"
)

// Token store backends.
const (
	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

type Config struct {
	Calendar       string `yaml:"calendar"`
	Timezone       string `yaml:"timezone"`
	WindowDays     int    `yaml:"window_days"`
	DurationPolicy string `yaml:"duration_policy"`
	TokenStore     string `yaml:"token_store"`
	HistoryDB      string `yaml:"history_db"`
	Debug          bool   `yaml:"debug"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Calendar:       "primary",
		Timezone:       "America/Los_Angeles",
		WindowDays:     7,
		DurationPolicy: string(report.CountAll),
		TokenStore:     TokenStoreFile,
		HistoryDB:      "history.db",
	}
}

// Dir returns the directory holding config, credentials, caches and logs.
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Normalize fills unset fields with defaults and rejects invalid values.
func (c *Config) Normalize() error {
	def := DefaultConfig()
	c.Calendar = strings.TrimSpace(c.Calendar)
	if c.Calendar == "" {
		c.Calendar = def.Calendar
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.WindowDays == 0 {
		c.WindowDays = def.WindowDays
	}
	if c.WindowDays < 0 {
		return fmt.Errorf("window_days must be positive, got %d", c.WindowDays)
	}
	policy, err := report.ParsePolicy(c.DurationPolicy)
	if err != nil {
		return err
	}
	c.DurationPolicy = string(policy)

	switch c.TokenStore = strings.ToLower(strings.TrimSpace(c.TokenStore)); c.TokenStore {
	case "":
		c.TokenStore = def.TokenStore
	case TokenStoreFile, TokenStoreKeyring:
	default:
		return fmt.Errorf("unknown token_store %q (want %s or %s)", c.TokenStore, TokenStoreFile, TokenStoreKeyring)
	}
	if c.HistoryDB == "" {
		c.HistoryDB = def.HistoryDB
	}
	return nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Policy returns the configured duration policy, falling back to CountAll.
func (c *Config) Policy() report.DurationPolicy {
	p, err := report.ParsePolicy(c.DurationPolicy)
	if err != nil {
		return report.CountAll
	}
	return p
}

// HistoryPath resolves HistoryDB relative to dir.
func (c *Config) HistoryPath(dir string) string {
	if c.HistoryDB == ":memory:" || filepath.IsAbs(c.HistoryDB) {
		return c.HistoryDB
	}
	return filepath.Join(dir, c.HistoryDB)
}

// Load reads the YAML config at path and merges it with defaults.
func Load(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrCreate loads the config at path (the default location when empty),
// writing defaults first if the file does not exist.
func LoadOrCreate(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Save writes cfg to path atomically.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}
	path, err := expandPath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
