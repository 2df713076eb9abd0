// Package config provides configuration types, defaults, loading and
// persistence for dispatch.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/dispatch/internal/log"
)

// LocalConfigPath is the project-local config location, checked first.
const LocalConfigPath = ".dispatch/config.yaml"

// Config holds all configuration options for dispatch.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// ServerConfig holds serve-mode options.
type ServerConfig struct {
	// Transport selects how `dispatch serve` speaks MCP: "stdio" or
	// "http".
	Transport string `mapstructure:"transport" yaml:"transport"`

	// Addr is the HTTP listen address when Transport is "http".
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Name and Version are reported during MCP initialize.
	Name    string `mapstructure:"name" yaml:"name"`
	Version string `mapstructure:"version" yaml:"version"`

	// Instructions is free-form guidance returned from initialize.
	Instructions string `mapstructure:"instructions" yaml:"instructions"`
}

// LogConfig holds logging options.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// File receives log output. Empty disables file logging.
	File string `mapstructure:"file" yaml:"file"`
}

// RegistryConfig holds execution-pipeline options.
type RegistryConfig struct {
	// DefaultExposure applies when a definition does not mention a
	// surface.
	DefaultExposure bool `mapstructure:"default_exposure" yaml:"default_exposure"`

	// SlowCallThresholdMs is when the timing middleware starts warning.
	SlowCallThresholdMs int `mapstructure:"slow_call_threshold_ms" yaml:"slow_call_threshold_ms"`

	// TimeoutMs bounds a single command execution.
	TimeoutMs int `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// SlowCallThreshold returns the threshold as a duration.
func (r RegistryConfig) SlowCallThreshold() time.Duration {
	return time.Duration(r.SlowCallThresholdMs) * time.Millisecond
}

// Timeout returns the execution timeout as a duration.
func (r RegistryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// CacheConfig holds result-cache options.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// AuthConfig holds the static auth adapter's token table.
type AuthConfig struct {
	// Enabled turns the auth middleware on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Tokens maps bearer tokens to users.
	Tokens map[string]AuthUser `mapstructure:"tokens" yaml:"tokens"`

	// Exclude lists command names that bypass auth.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// AuthUser is one entry in the static token table.
type AuthUser struct {
	ID    string `mapstructure:"id" yaml:"id"`
	Email string `mapstructure:"email" yaml:"email"`
	Name  string `mapstructure:"name" yaml:"name"`
}

// StoreConfig selects the todo persistence backend.
type StoreConfig struct {
	// Backend: "memory" or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// TracingConfig holds distributed tracing options.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Exporter: "none", "file", "stdout", "otlp".
	Exporter string `mapstructure:"exporter" yaml:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path" yaml:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      "127.0.0.1:3100",
			Name:      "dispatch",
			Version:   "dev",
		},
		Log: LogConfig{
			Level: "info",
		},
		Registry: RegistryConfig{
			DefaultExposure:     true,
			SlowCallThresholdMs: 100,
			TimeoutMs:           30000,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 30,
		},
		Store: StoreConfig{
			Backend:    "memory",
			SQLitePath: DefaultSQLitePath(),
		},
		Tracing: TracingConfig{
			Exporter:   "file",
			FilePath:   DefaultTracesFilePath(),
			SampleRate: 1.0,
		},
	}
}

// DefaultSQLitePath returns ~/.config/dispatch/todos.db, or empty when
// the home directory is unavailable.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "dispatch", "todos.db")
}

// DefaultTracesFilePath returns ~/.config/dispatch/traces/traces.jsonl,
// or empty when the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "dispatch", "traces", "traces.jsonl")
}

// Load reads configuration from cfgFile, or discovers it when cfgFile
// is empty: ./.dispatch/config.yaml first, then
// ~/.config/dispatch/config.yaml. DISPATCH_* environment variables
// override file values (DISPATCH_SERVER_TRANSPORT, DISPATCH_LOG_LEVEL,
// ...). A missing config file is not an error; defaults apply.
// The second return value is the config file actually used, empty when
// none was found.
func Load(cfgFile string) (Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(LocalConfigPath); err == nil {
		v.SetConfigFile(LocalConfigPath)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "dispatch"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case cfgFile == "" && (errors.As(err, &notFound) || os.IsNotExist(err)):
			// No config anywhere; run on defaults.
		default:
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("parsing config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, "", err
	}

	used := v.ConfigFileUsed()
	log.Debug(log.CatConfig, "config loaded", "file", used)
	return cfg, used, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Defaults()
	v.SetDefault("server.transport", defaults.Server.Transport)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.name", defaults.Server.Name)
	v.SetDefault("server.version", defaults.Server.Version)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("registry.default_exposure", defaults.Registry.DefaultExposure)
	v.SetDefault("registry.slow_call_threshold_ms", defaults.Registry.SlowCallThresholdMs)
	v.SetDefault("registry.timeout_ms", defaults.Registry.TimeoutMs)
	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.sqlite_path", defaults.Store.SQLitePath)
	v.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	v.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	v.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
}

// Validate checks a loaded configuration for errors. Empty values that
// have defaults are valid.
func Validate(cfg Config) error {
	switch cfg.Server.Transport {
	case "", "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be \"stdio\" or \"http\", got %q", cfg.Server.Transport)
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level)
	}

	switch cfg.Store.Backend {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("store.backend must be \"memory\" or \"sqlite\", got %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "sqlite" && cfg.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path is required when store.backend is \"sqlite\"")
	}

	if cfg.Registry.SlowCallThresholdMs < 0 {
		return fmt.Errorf("registry.slow_call_threshold_ms must not be negative, got %d", cfg.Registry.SlowCallThresholdMs)
	}
	if cfg.Registry.TimeoutMs < 0 {
		return fmt.Errorf("registry.timeout_ms must not be negative, got %d", cfg.Registry.TimeoutMs)
	}

	return validateTracing(cfg.Tracing)
}



func validateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	switch tracing.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
	}

	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}
