package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DataPaths holds all data directory and file path configuration.
// These paths can be overridden via environment variables.
type DataPaths struct {
	// DataDir is the base data directory (SCRUB_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// CorpusDir is the fuzzing corpus directory (SCRUB_CORPUS_DIR, default: ${DataDir}/corpus)
	CorpusDir string `mapstructure:"corpus_dir"`
	// CrashersDir is where crash-triggering inputs are written (SCRUB_CRASHERS_DIR, default: ${DataDir}/crashers)
	CrashersDir string `mapstructure:"crashers_dir"`
	// DBPath is the SQLite crasher database path (SCRUB_DB_PATH, default: ${DataDir}/scrub.db)
	DBPath string `mapstructure:"db_path"`
}

// SanitizerConfig bounds the sanitizer's work per input.
type SanitizerConfig struct {
	// MaxInputBytes is the largest input the sanitizer accepts.
	MaxInputBytes int `mapstructure:"max_input_bytes"`
	// MaxStringLength caps individual string values; longer strings are
	// truncated with a marker.
	MaxStringLength int `mapstructure:"max_string_length"`
	// MaxDepth caps document nesting; deeper input is rejected as malformed.
	MaxDepth int `mapstructure:"max_depth"`
	// PolicyPath is an optional YAML redaction policy file. Empty means the
	// built-in default policy.
	PolicyPath string `mapstructure:"policy_path"`
	// RegexTimeoutMs bounds redaction pattern matching per value to protect
	// against catastrophic backtracking.
	RegexTimeoutMs int `mapstructure:"regex_timeout_ms"`
}

// APIConfig configures the HTTP sanitize endpoint.
type APIConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	RateLimit struct {
		RequestsPerSecond int `mapstructure:"requests_per_second"`
		Burst             int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
	// SchemaPath is an optional JSON schema applied to sanitized output.
	SchemaPath string `mapstructure:"schema_path"`
}

// FuzzConfig configures the standalone fuzz driver.
type FuzzConfig struct {
	// Seed seeds the mutator; 0 derives a seed from the clock.
	Seed int64 `mapstructure:"seed"`
	// MaxExecs stops the run after this many executions; 0 means unbounded.
	MaxExecs uint64 `mapstructure:"max_execs"`
	// Duration stops the run after this much wall time; 0 means unbounded.
	Duration time.Duration `mapstructure:"duration"`
	// ExecRate caps executions per second; 0 means unpaced.
	ExecRate int `mapstructure:"exec_rate"`
	// MaxCorpusEntries caps how many corpus files are loaded.
	MaxCorpusEntries int `mapstructure:"max_corpus_entries"`
	// DedupCacheSize bounds the crash-signature dedup cache.
	DedupCacheSize int `mapstructure:"dedup_cache_size"`
}

// Config holds all configuration for the scrub service.
type Config struct {
	DataPaths DataPaths       `mapstructure:"data_paths"`
	Sanitizer SanitizerConfig `mapstructure:"sanitizer"`
	API       APIConfig       `mapstructure:"api"`
	Fuzz      FuzzConfig      `mapstructure:"fuzz"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.corpus_dir", "")   // Empty = derive from data_dir
	viper.SetDefault("data_paths.crashers_dir", "") // Empty = derive from data_dir
	viper.SetDefault("data_paths.db_path", "")      // Empty = derive from data_dir

	viper.SetDefault("sanitizer.max_input_bytes", 1024*1024) // 1MB
	viper.SetDefault("sanitizer.max_string_length", 50000)
	viper.SetDefault("sanitizer.max_depth", 20)
	viper.SetDefault("sanitizer.policy_path", "")
	viper.SetDefault("sanitizer.regex_timeout_ms", 500)

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_limit.requests_per_second", 100)
	viper.SetDefault("api.rate_limit.burst", 100)
	viper.SetDefault("api.schema_path", "")

	viper.SetDefault("fuzz.seed", 0)
	viper.SetDefault("fuzz.max_execs", 0)
	viper.SetDefault("fuzz.duration", time.Duration(0))
	viper.SetDefault("fuzz.exec_rate", 0)
	viper.SetDefault("fuzz.max_corpus_entries", 10000)
	viper.SetDefault("fuzz.dedup_cache_size", 1024)

	viper.SetDefault("log.level", "info")
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("SCRUB")
	viper.AutomaticEnv()

	// Explicit environment variable bindings for path settings
	_ = viper.BindEnv("data_paths.data_dir", "SCRUB_DATA_DIR")
	_ = viper.BindEnv("data_paths.corpus_dir", "SCRUB_CORPUS_DIR")
	_ = viper.BindEnv("data_paths.crashers_dir", "SCRUB_CRASHERS_DIR")
	_ = viper.BindEnv("data_paths.db_path", "SCRUB_DB_PATH")
}

// validateConfig rejects limits that would make the sanitizer or driver
// misbehave rather than letting them fail later.
func validateConfig(config *Config) error {
	if config.Sanitizer.MaxInputBytes <= 0 {
		return fmt.Errorf("sanitizer.max_input_bytes must be positive, got %d", config.Sanitizer.MaxInputBytes)
	}
	if config.Sanitizer.MaxStringLength <= 0 {
		return fmt.Errorf("sanitizer.max_string_length must be positive, got %d", config.Sanitizer.MaxStringLength)
	}
	if config.Sanitizer.MaxDepth <= 0 || config.Sanitizer.MaxDepth > 1000 {
		return fmt.Errorf("sanitizer.max_depth must be in 1..1000, got %d", config.Sanitizer.MaxDepth)
	}
	if config.Sanitizer.RegexTimeoutMs <= 0 {
		return fmt.Errorf("sanitizer.regex_timeout_ms must be positive, got %d", config.Sanitizer.RegexTimeoutMs)
	}
	if config.API.Port <= 0 || config.API.Port > 65535 {
		return fmt.Errorf("api.port must be a valid port, got %d", config.API.Port)
	}
	if config.API.RateLimit.RequestsPerSecond < 0 || config.API.RateLimit.Burst < 0 {
		return fmt.Errorf("api.rate_limit values must not be negative")
	}
	if config.Fuzz.ExecRate < 0 {
		return fmt.Errorf("fuzz.exec_rate must not be negative, got %d", config.Fuzz.ExecRate)
	}
	if config.Fuzz.MaxCorpusEntries <= 0 {
		return fmt.Errorf("fuzz.max_corpus_entries must be positive, got %d", config.Fuzz.MaxCorpusEntries)
	}
	if config.Fuzz.DedupCacheSize <= 0 {
		return fmt.Errorf("fuzz.dedup_cache_size must be positive, got %d", config.Fuzz.DedupCacheSize)
	}
	switch config.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", config.Log.Level)
	}
	return nil
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Resolve data paths (derive from data_dir if not explicitly set)
	config.ResolveDataPaths()

	return &config, nil
}

// ResolveDataPaths resolves all data paths, deriving from DataDir if not
// explicitly set.
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.CorpusDir == "" {
		c.DataPaths.CorpusDir = filepath.Join(dataDir, "corpus")
	} else if !filepath.IsAbs(c.DataPaths.CorpusDir) {
		c.DataPaths.CorpusDir = filepath.Clean(c.DataPaths.CorpusDir)
	}

	if c.DataPaths.CrashersDir == "" {
		c.DataPaths.CrashersDir = filepath.Join(dataDir, "crashers")
	} else if !filepath.IsAbs(c.DataPaths.CrashersDir) {
		c.DataPaths.CrashersDir = filepath.Clean(c.DataPaths.CrashersDir)
	}

	if c.DataPaths.DBPath == "" {
		c.DataPaths.DBPath = filepath.Join(dataDir, "scrub.db")
	} else if !filepath.IsAbs(c.DataPaths.DBPath) {
		c.DataPaths.DBPath = filepath.Clean(c.DataPaths.DBPath)
	}

	c.DataPaths.DataDir = dataDir
}

// GetDataDir returns the resolved base data directory
func (c *Config) GetDataDir() string {
	if c.DataPaths.DataDir == "" {
		return "./data"
	}
	return c.DataPaths.DataDir
}

// RegexTimeout returns the redaction pattern timeout as a Duration.
func (c *Config) RegexTimeout() time.Duration {
	return time.Duration(c.Sanitizer.RegexTimeoutMs) * time.Millisecond
}
