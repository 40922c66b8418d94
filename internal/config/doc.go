// Package config handles configuration loading for mail-assistant.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by the .toml
// extension) with environment variable expansion. Every value has a
// default, so running without a file is valid.
//
// # Configuration File
//
// Locations (first match wins):
//
//  1. The -config flag
//  2. Path from the MAIL_ASSISTANT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/mail-assistant/config.yaml (~/.config when unset)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  token: "${MAIL_ASSISTANT_TOKEN}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	assistant:
//	  open_delay: "100ms"
//	  route_absence_ttl: "5m"
//
// # Complete Example
//
//	api:
//	  base_url: "http://localhost:8000/api"
//	  token_file: "/home/me/.config/mail-assistant/token"
//	  timeout: "5m"
//
//	storage:
//	  driver: "sqlite"       # or "memory"
//	  path: "/home/me/.local/share/mail-assistant/state.db"
//
//	assistant:
//	  open_delay: "100ms"
//	  route_absence_ttl: "5m"  # 0 re-probes absent routes every call
//
//	logging:
//	  level: "info"          # debug, info, warn, error
//	  format: "text"         # text or json
package config
