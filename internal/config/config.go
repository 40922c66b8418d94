// ABOUTME: Configuration loading and parsing for mail-assistant
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a config file
const EnvConfigPath = "MAIL_ASSISTANT_CONFIG"

// appName is the directory name used under XDG config and data homes
const appName = "mail-assistant"

// Config represents the complete mail-assistant configuration
type Config struct {
	API       APIConfig       `yaml:"api" toml:"api"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Assistant AssistantConfig `yaml:"assistant" toml:"assistant"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// APIConfig holds the backend connection settings
type APIConfig struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	Token     string `yaml:"token" toml:"token"`
	TokenFile string `yaml:"token_file" toml:"token_file"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// StorageConfig selects where session state is kept
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // "sqlite" or "memory"
	Path   string `yaml:"path" toml:"path"`
}

// AssistantConfig holds session behaviour settings
type AssistantConfig struct {
	OpenDelay       time.Duration `yaml:"-" toml:"-"`
	RouteAbsenceTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	OpenDelayRaw       string `yaml:"open_delay" toml:"open_delay"`
	RouteAbsenceTTLRaw string `yaml:"route_absence_ttl" toml:"route_absence_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   defaultDataPath(),
		},
		Assistant: AssistantConfig{
			OpenDelay:       100 * time.Millisecond,
			RouteAbsenceTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML. Values
// not set in the file keep their defaults. Environment variables in the
// format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ResolvePath picks the config file: an explicit path, then
// $MAIL_ASSISTANT_CONFIG, then $XDG_CONFIG_HOME/mail-assistant/config.yaml
// (~/.config when XDG_CONFIG_HOME is unset).
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName, "config.yaml")
}

func defaultDataPath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), appName, "state.db")
}

// xdgDir returns $env, or ~/fallback when it is unset.
func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, fallback)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https scheme")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver must be sqlite or memory, got %q", c.Storage.Driver)
	}

	if c.Assistant.OpenDelay < 0 {
		return fmt.Errorf("assistant.open_delay must not be negative")
	}
	if c.Assistant.RouteAbsenceTTL < 0 {
		return fmt.Errorf("assistant.route_absence_ttl must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"api.timeout", cfg.API.TimeoutRaw, &cfg.API.Timeout},
		{"assistant.open_delay", cfg.Assistant.OpenDelayRaw, &cfg.Assistant.OpenDelay},
		{"assistant.route_absence_ttl", cfg.Assistant.RouteAbsenceTTLRaw, &cfg.Assistant.RouteAbsenceTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
