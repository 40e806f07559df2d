// ABOUTME: Beacon configuration management with backend selection
// ABOUTME: Handles settings, env overrides, validation, and storage backend factory

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/renameio/v2"
	"github.com/harper/beacon/internal/charm"
	"github.com/harper/beacon/internal/location"
	"github.com/harper/beacon/internal/reporter"
	"github.com/harper/beacon/internal/session"
	"github.com/harper/beacon/internal/storage"
)

// Backend names.
const (
	BackendCharm  = "charm"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config stores beacon configuration.
type Config struct {
	// Backend selects the document store: "charm" (default), "sqlite", or "memory".
	Backend string `json:"backend,omitempty" validate:"omitempty,oneof=charm sqlite memory"`

	// DataDir is the root directory for local state.
	// SQLite puts beacon.db here and local preferences live under prefs/.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/beacon.
	DataDir string `json:"data_dir,omitempty"`

	// CharmHost is the Charm server used by the charm backend.
	CharmHost string `json:"charm_host,omitempty" validate:"omitempty,hostname|hostname_port|ip"`

	// Source is the location source, e.g. "nmea:/dev/ttyACM0" or "static:41.8,-87.6".
	Source string `json:"source,omitempty" validate:"omitempty,startswith=nmea:|startswith=static:"`

	// Durations use time.ParseDuration syntax ("5s", "1m").
	Interval     string `json:"interval,omitempty"`
	StaleAfter   string `json:"stale_after,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`

	MaxIDAttempts int    `json:"max_id_attempts,omitempty" validate:"omitempty,min=1,max=10000"`
	LogLevel      string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	MetricsAddr   string `json:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// validate is shared; validator caches struct metadata.
var validate = validator.New()

// Validate checks field values and duration syntax.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s=%q fails %s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, value := range map[string]string{
		"interval":      c.Interval,
		"stale_after":   c.StaleAfter,
		"write_timeout": c.WriteTimeout,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid config: %s must not be negative", name)
		}
	}
	return nil
}

// GetBackend returns the configured backend, defaulting to "charm".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendCharm
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetPrefsDir returns the directory holding local preferences.
func (c *Config) GetPrefsDir() string {
	return filepath.Join(c.GetDataDir(), "prefs")
}

// GetCharmHost returns the configured Charm server.
func (c *Config) GetCharmHost() string {
	if c.CharmHost == "" {
		return charm.DefaultCharmHost
	}
	return c.CharmHost
}

// GetSource returns the configured location source.
func (c *Config) GetSource() string {
	if c.Source == "" {
		return location.DefaultSource
	}
	return c.Source
}

// GetInterval returns the location update interval.
func (c *Config) GetInterval() time.Duration {
	return duration(c.Interval, location.DefaultInterval)
}

// GetStaleAfter returns the staleness threshold. "0s" disables the check.
func (c *Config) GetStaleAfter() time.Duration {
	return duration(c.StaleAfter, reporter.DefaultStaleAfter)
}

// GetWriteTimeout returns the per-write store timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return duration(c.WriteTimeout, reporter.DefaultWriteTimeout)
}

// GetMaxIDAttempts returns the id generation attempt budget.
func (c *Config) GetMaxIDAttempts() int {
	if c.MaxIDAttempts <= 0 {
		return session.DefaultMaxAttempts
	}
	return c.MaxIDAttempts
}

// GetLogLevel returns the log level, defaulting to "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

func duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// defaultDataDir returns the default XDG data directory for beacon.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "beacon")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a DocumentStore based on the configured backend.
func (c *Config) OpenStorage() (storage.DocumentStore, error) {
	switch backend := c.GetBackend(); backend {
	case BackendCharm:
		return charm.NewClient(&charm.Config{
			CharmHost: c.GetCharmHost(),
			AutoSync:  true,
		})
	case BackendSQLite:
		return storage.NewSQLiteDB(filepath.Join(c.GetDataDir(), "beacon.db"))
	case BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// ApplyEnv overlays BEACON_* variables and CHARM_HOST onto c.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"BEACON_BACKEND":       &c.Backend,
		"BEACON_DATA_DIR":      &c.DataDir,
		"CHARM_HOST":           &c.CharmHost,
		"BEACON_SOURCE":        &c.Source,
		"BEACON_INTERVAL":      &c.Interval,
		"BEACON_STALE_AFTER":   &c.StaleAfter,
		"BEACON_WRITE_TIMEOUT": &c.WriteTimeout,
		"BEACON_LOG_LEVEL":     &c.LogLevel,
		"BEACON_METRICS_ADDR":  &c.MetricsAddr,
	}
	for env, field := range strs {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
	if v := os.Getenv("BEACON_MAX_ID_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BEACON_MAX_ID_ATTEMPTS: %w", err)
		}
		c.MaxIDAttempts = n
	}
	return nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "beacon", "config.json")
}

// Load reads config from disk, applies env overrides, and validates the result.
// A missing file is created with defaults.
func Load() (*Config, error) {
	path := GetConfigPath()
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		cfg.Backend = BackendCharm
		if saveErr := cfg.Save(); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
		}
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to disk atomically.
func (c *Config) Save() error {
	path := GetConfigPath()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil { //nolint:gosec // 0750 is appropriate for user config directory
		return fmt.Errorf("create directory: %w", err)
	}
	return renameio.WriteFile(path, data, 0o600)
}
