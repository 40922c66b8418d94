// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, defaults, env var expansion, duration parsing and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
api:
  base_url: "https://console.example.com/api"
  token: "tok"
  timeout: "30s"

storage:
  driver: "sqlite"
  path: "./state.db"

assistant:
  open_delay: "250ms"
  route_absence_ttl: "10m"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://console.example.com/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://console.example.com/api")
	}
	if cfg.API.Token != "tok" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "tok")
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 30*time.Second)
	}
	if cfg.Storage.Path != "./state.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "./state.db")
	}
	if cfg.Assistant.OpenDelay != 250*time.Millisecond {
		t.Errorf("Assistant.OpenDelay = %v, want %v", cfg.Assistant.OpenDelay, 250*time.Millisecond)
	}
	if cfg.Assistant.RouteAbsenceTTL != 10*time.Minute {
		t.Errorf("Assistant.RouteAbsenceTTL = %v, want %v", cfg.Assistant.RouteAbsenceTTL, 10*time.Minute)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[api]
base_url = "http://127.0.0.1:9000/api"
timeout = "1m"

[storage]
driver = "memory"

[assistant]
open_delay = "0s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://127.0.0.1:9000/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != time.Minute {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, time.Minute)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, "memory")
	}
	if cfg.Assistant.OpenDelay != 0 {
		t.Errorf("Assistant.OpenDelay = %v, want 0", cfg.Assistant.OpenDelay)
	}
	// Unset values keep their defaults
	if cfg.Assistant.RouteAbsenceTTL != 5*time.Minute {
		t.Errorf("Assistant.RouteAbsenceTTL = %v, want %v", cfg.Assistant.RouteAbsenceTTL, 5*time.Minute)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	path := writeConfig(t, "config.yaml", "logging:\n  level: warn\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.API != def.API {
		t.Errorf("API = %+v, want defaults %+v", cfg.API, def.API)
	}
	if cfg.Storage.Path != "/tmp/xdg-data/mail-assistant/state.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_ASSISTANT_TOKEN", "secret-from-env")
	t.Setenv("TEST_ASSISTANT_HOST", "console.internal")

	path := writeConfig(t, "config.yaml", `
api:
  base_url: "https://${TEST_ASSISTANT_HOST}/api"
  token: "${TEST_ASSISTANT_TOKEN}"
  token_file: "${TEST_UNSET_VAR}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Token != "secret-from-env" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "secret-from-env")
	}
	if cfg.API.BaseURL != "https://console.internal/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.TokenFile != "" {
		t.Errorf("API.TokenFile = %q, want empty for unset var", cfg.API.TokenFile)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "config.yaml", "api:\n  timeout: \"soon\"\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "api.timeout") {
		t.Errorf("error %q should name the field", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "api: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Errorf("API.BaseURL = %q, want default", cfg.API.BaseURL)
	}
}

func TestLoadOrDefault_InvalidFileStillFails(t *testing.T) {
	path := writeConfig(t, "config.yaml", "storage:\n  driver: redis\n")

	if _, err := LoadOrDefault(path); err == nil {
		t.Fatal("LoadOrDefault() expected validation error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url is required"},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x/api" }, "http or https"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"memory without path", func(c *Config) { c.Storage.Driver = "memory"; c.Storage.Path = "" }, ""},
		{"negative delay", func(c *Config) { c.Assistant.OpenDelay = -time.Second }, "open_delay"},
		{"negative ttl", func(c *Config) { c.Assistant.RouteAbsenceTTL = -time.Second }, "route_absence_ttl"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")

	if got := ResolvePath("/explicit.yaml"); got != "/explicit.yaml" {
		t.Errorf("ResolvePath(explicit) = %q", got)
	}
	if got := ResolvePath(""); got != "/tmp/xdg-config/mail-assistant/config.yaml" {
		t.Errorf("ResolvePath(\"\") = %q", got)
	}

	t.Setenv(EnvConfigPath, "/from/env.toml")
	if got := ResolvePath(""); got != "/from/env.toml" {
		t.Errorf("ResolvePath(\"\") with env = %q", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_A", "alpha")

	got := expandEnvVars("a=${TEST_A} b=${TEST_B_UNSET} c=$TEST_A")
	want := "a=alpha b= c=$TEST_A"
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}
