package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/dispatch/internal/log"
)

// DefaultConfigTemplate returns the default config file content with
// explanatory comments.
func DefaultConfigTemplate() string {
	return `# dispatch configuration
# Environment variables override file values: DISPATCH_SERVER_TRANSPORT,
# DISPATCH_LOG_LEVEL, DISPATCH_STORE_BACKEND, ...

# MCP server settings (dispatch serve)
server:
  # Transport: stdio (default) or http
  transport: stdio

  # Listen address for the http transport
  addr: "127.0.0.1:3100"

  # Name and version reported during MCP initialize
  name: dispatch
  version: dev

  # Free-form guidance returned to MCP clients on initialize
  # instructions: "Call registry-help first to discover commands."

# Logging
log:
  # Level: debug, info, warn, error
  level: info

  # Log file path. Empty disables file logging.
  # file: ~/.config/dispatch/dispatch.log

# Execution pipeline
registry:
  # Whether commands without an explicit surface setting are exposed
  default_exposure: true

  # Executions slower than this are logged as warnings
  slow_call_threshold_ms: 100

  # Per-execution timeout. 0 disables the timeout.
  timeout_ms: 30000

# Result cache for read-only commands
cache:
  enabled: true
  ttl_seconds: 30

# Static token auth. Disabled by default; all callers are anonymous.
# auth:
#   enabled: true
#   exclude: [registry-help, registry-schema]
#   tokens:
#     secret-token-1:
#       id: usr-1
#       email: dev@example.com
#       name: Dev

# Todo persistence backend: memory (default) or sqlite
store:
  backend: memory
  # sqlite_path: ~/.config/dispatch/todos.db

# Distributed tracing
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/dispatch/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # for the otlp exporter
#   sample_rate: 1.0               # 0.0 to 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "created default config", "path", configPath)
	return nil
}

// Save writes cfg to configPath as YAML, creating the parent directory
// if needed. Unlike WriteDefaultConfig, the output carries no comments.
func Save(configPath string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Debug(log.CatConfig, "config saved", "path", configPath)
	return nil
}
