// Package config loads safeguard's runtime configuration.
//
// Sources are applied in order: built-in defaults, an optional YAML file,
// then SAFEGUARD_* environment variables. The first underscore after the
// prefix separates section from field, so SAFEGUARD_SERVER_HTTP_ADDR sets
// server.http_addr.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SAFEGUARD_"

// MaxFileBytes caps the size of the YAML config file.
const MaxFileBytes = 1 << 20

// DefaultHTTPAddr is where `safeguard http` listens when unset.
const DefaultHTTPAddr = "127.0.0.1:8787"

// Duration wraps time.Duration for text unmarshaling (YAML, env vars).
type Duration time.Duration

// UnmarshalText parses a Go duration string such as "90s" or "2h".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the full configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Storage     StorageConfig     `koanf:"storage"`
	Context     ContextConfig     `koanf:"context"`
	Intent      IntentConfig      `koanf:"intent"`
	Attempts    AttemptsConfig    `koanf:"attempts"`
	Enforcement EnforcementConfig `koanf:"enforcement"`
	Patterns    PatternsConfig    `koanf:"patterns"`
}

// ServerConfig covers both transports.
type ServerConfig struct {
	Name            string   `koanf:"name"`
	HTTPAddr        string   `koanf:"http_addr"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig selects level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StorageConfig locates durable state.
type StorageConfig struct {
	DataDir string `koanf:"data_dir"`
}

// ContextConfig drives the project context loader.
type ContextConfig struct {
	// ProjectPath is used when a load_context call names no project.
	ProjectPath   string   `koanf:"project_path"`
	Dir           string   `koanf:"dir"`
	DecisionsFile string   `koanf:"decisions_file"`
	AttemptsFile  string   `koanf:"attempts_file"`
	ReadTimeout   Duration `koanf:"read_timeout"`
	MaxFileBytes  int64    `koanf:"max_file_bytes"`
}

// IntentConfig tunes the clarification loop.
type IntentConfig struct {
	OverallThreshold int `koanf:"overall_threshold"`
	MaxRounds        int `koanf:"max_rounds"`
}

// AttemptsConfig tunes retry detection.
type AttemptsConfig struct {
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	RetryFailureLimit   int     `koanf:"retry_failure_limit"`
}

// EnforcementConfig tunes the token service. A zero SweepInterval turns
// the background sweep off.
type EnforcementConfig struct {
	TTL           Duration `koanf:"ttl"`
	SweepInterval Duration `koanf:"sweep_interval"`
}

// PatternsConfig optionally replaces the built-in catalog.
type PatternsConfig struct {
	CatalogFile string `koanf:"catalog_file"`
}

// DefaultPath returns ~/.config/safeguard/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "safeguard", "config.yaml"), nil
}

// Load reads configuration from the default path and the environment.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile reads configuration from configPath (the default path when
// empty) and the environment. A missing file is not an error.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > MaxFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxFileBytes)
	}

	content, err := io.ReadAll(io.LimitReader(f, MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > MaxFileBytes {
		return nil, fmt.Errorf("config file too large (max %d bytes)", MaxFileBytes)
	}
	return content, nil
}

// envKey maps SAFEGUARD_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "safeguard"
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Storage.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.DataDir = filepath.Join(home, ".local", "share", "safeguard")
		} else {
			cfg.Storage.DataDir = ".safeguard-data"
		}
	}

	if cfg.Context.Dir == "" {
		cfg.Context.Dir = ".safeguard"
	}
	if cfg.Context.DecisionsFile == "" {
		cfg.Context.DecisionsFile = "decisions.md"
	}
	if cfg.Context.AttemptsFile == "" {
		cfg.Context.AttemptsFile = "attempts.md"
	}
	if cfg.Context.ReadTimeout == 0 {
		cfg.Context.ReadTimeout = Duration(2 * time.Second)
	}
	if cfg.Context.MaxFileBytes == 0 {
		cfg.Context.MaxFileBytes = 1 << 20
	}

	if cfg.Intent.OverallThreshold == 0 {
		cfg.Intent.OverallThreshold = 70
	}
	if cfg.Intent.MaxRounds == 0 {
		cfg.Intent.MaxRounds = 5
	}

	if cfg.Attempts.SimilarityThreshold == 0 {
		cfg.Attempts.SimilarityThreshold = 0.7
	}
	if cfg.Attempts.RetryFailureLimit == 0 {
		cfg.Attempts.RetryFailureLimit = 2
	}

	if cfg.Enforcement.TTL == 0 {
		cfg.Enforcement.TTL = Duration(2 * time.Hour)
	}
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate rejects values the components cannot run with.
func (c *Config) Validate() error {
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format %q (must be json or console)", c.Logging.Format)
	}
	if c.Context.ReadTimeout < 0 {
		return errors.New("context read timeout must not be negative")
	}
	if c.Context.MaxFileBytes < 0 {
		return errors.New("context max file bytes must not be negative")
	}
	if c.Intent.OverallThreshold < 1 || c.Intent.OverallThreshold > 100 {
		return fmt.Errorf("invalid intent threshold: %d (must be 1-100)", c.Intent.OverallThreshold)
	}
	if c.Intent.MaxRounds < 1 {
		return fmt.Errorf("invalid intent max rounds: %d (must be at least 1)", c.Intent.MaxRounds)
	}
	if c.Attempts.SimilarityThreshold <= 0 || c.Attempts.SimilarityThreshold > 1 {
		return fmt.Errorf("invalid similarity threshold: %g (must be in (0, 1])", c.Attempts.SimilarityThreshold)
	}
	if c.Attempts.RetryFailureLimit < 1 {
		return fmt.Errorf("invalid retry failure limit: %d (must be at least 1)", c.Attempts.RetryFailureLimit)
	}
	if c.Enforcement.TTL <= 0 {
		return errors.New("enforcement ttl must be positive")
	}
	if c.Enforcement.SweepInterval < 0 {
		return errors.New("enforcement sweep interval must not be negative")
	}
	return nil
}
