// Package config loads mindful-journal settings from an optional YAML file
// and MINDFUL_* environment variables.
//
// Precedence, lowest to highest: built-in defaults, the YAML file (with
// ${VAR} references expanded), environment variables, command-line flags
// applied by the caller.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/JamesPrial/mindful-journal/internal/dataroot"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataDir        = "MINDFUL_DATA_DIR"
	EnvAddr           = "MINDFUL_ADDR"
	EnvStorageBackend = "MINDFUL_STORAGE_BACKEND"
	EnvSQLitePath     = "MINDFUL_SQLITE_PATH"
	EnvPostgresURL    = "MINDFUL_POSTGRES_URL"
	EnvLogLevel       = "MINDFUL_LOG_LEVEL"
	EnvLogFormat      = "MINDFUL_LOG_FORMAT"
	EnvMetrics        = "MINDFUL_METRICS"
)

// Defaults.
const (
	DefaultAddr            = "127.0.0.1:5000"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultMetricsPath     = "/metrics"
	DefaultShutdownTimeout = 30 * time.Second
)

// Config is the complete application configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`

	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

// StorageConfig selects the goals/tasks backend.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StorageOptions converts the storage section for storage.NewListBackend.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresURL: c.Storage.PostgresURL,
	}
}

// Default returns the built-in configuration. DataDir is
// ~/Desktop/MindfulJournalData, or empty when the home directory is unknown.
func Default() *Config {
	dataDir, _ := dataroot.DefaultPath()
	return &Config{
		DataDir: dataDir,
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageConfig{Backend: storage.BackendJSON},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Metrics: MetricsConfig{Enabled: true, Path: DefaultMetricsPath},
	}
}

// Override adjusts a Config after the file and environment are applied, for
// command-line flags.
type Override func(*Config)

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the process environment and overrides, then validates it.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or with an
// empty string when it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// ApplyEnv overrides fields from MINDFUL_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strOverrides := []struct {
		key string
		dst *string
	}{
		{EnvDataDir, &c.DataDir},
		{EnvAddr, &c.Server.Addr},
		{EnvStorageBackend, &c.Storage.Backend},
		{EnvSQLitePath, &c.Storage.SQLitePath},
		{EnvPostgresURL, &c.Storage.PostgresURL},
		{EnvLogLevel, &c.Logging.Level},
		{EnvLogFormat, &c.Logging.Format},
	}
	for _, o := range strOverrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}

	if v, ok := lookup(EnvMetrics); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvMetrics, v, err)
		}
		c.Metrics.Enabled = enabled
	}
	return nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "", storage.BackendJSON, storage.BackendSQLite:
	case storage.BackendPostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required when storage.backend is postgres")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of json, sqlite, postgres", c.Storage.Backend)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	return nil
}

func parseDurations(cfg *Config) error {
	if cfg.Server.ShutdownTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	return nil
}
