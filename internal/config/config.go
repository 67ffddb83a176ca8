package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Probe     ProbeConfig     `yaml:"probe"`
	Auth      AuthConfig      `yaml:"auth"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig contains embedding service settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"-"` // env-only, never in YAML
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ScoringConfig contains contrastive scoring settings.
type ScoringConfig struct {
	// Temperature is the default softmax temperature when a request does
	// not supply one. Typical contrastive values are 0.05-0.5.
	Temperature float64 `yaml:"temperature"`
	// MaxBatchSize caps the number of embeddings accepted per score call.
	MaxBatchSize int `yaml:"max_batch_size"`
}

// ProbeConfig contains linear-probe training defaults.
type ProbeConfig struct {
	Epochs    int     `yaml:"epochs"`
	BatchSize int     `yaml:"batch_size"`
	LearnRate float64 `yaml:"learn_rate"`
	L2Penalty float64 `yaml:"l2_penalty"`
	EvalSplit float64 `yaml:"eval_split"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	RunRetention      Duration `yaml:"run_retention"`
	RetentionInterval Duration `yaml:"retention_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("SELFSUP_CONFIG_PATH", "config/selfsup.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/selfsup.db",
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Scoring: ScoringConfig{
			Temperature:  0.1,
			MaxBatchSize: 2048,
		},
		Probe: ProbeConfig{
			Epochs:    50,
			BatchSize: 32,
			LearnRate: 0.1,
			L2Penalty: 1e-4,
			EvalSplit: 0.2,
		},
		Worker: WorkerConfig{
			RunRetention:      Duration(30 * 24 * time.Hour),
			RetentionInterval: Duration(1 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is OK; use defaults
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("SELFSUP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SELFSUP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("SELFSUP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("SELFSUP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	// Database
	if v := os.Getenv("SELFSUP_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Embedding (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("SELFSUP_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	// Scoring
	if v := os.Getenv("SELFSUP_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.Temperature = f
		}
	}
	if v := os.Getenv("SELFSUP_MAX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.MaxBatchSize = n
		}
	}

	// Probe
	if v := os.Getenv("SELFSUP_PROBE_EPOCHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Probe.Epochs = n
		}
	}
	if v := os.Getenv("SELFSUP_PROBE_LEARN_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Probe.LearnRate = f
		}
	}

	// Auth
	if v := os.Getenv("SELFSUP_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Worker
	if v := os.Getenv("SELFSUP_RUN_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.RunRetention = Duration(d)
		}
	}
	if v := os.Getenv("SELFSUP_RETENTION_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.RetentionInterval = Duration(d)
		}
	}

	// Log
	if v := os.Getenv("SELFSUP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SELFSUP_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks that required configuration values are set.
// In dev mode (SELFSUP_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate() error {
	if c.Scoring.Temperature <= 0 {
		return errors.New("scoring.temperature must be positive")
	}
	if c.Probe.EvalSplit <= 0 || c.Probe.EvalSplit >= 1 {
		return errors.New("probe.eval_split must be in (0, 1)")
	}

	// Dev mode bypasses API key validation
	if os.Getenv("SELFSUP_DEV_MODE") == "true" {
		return nil
	}

	if c.Auth.APIKey == "" {
		return errors.New("SELFSUP_API_KEY is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
