package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	adapterhttp "github.com/marmos91/fileshover/pkg/adapter/http"
	"github.com/spf13/viper"
)

// Config represents the complete file-shover configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FILESHOVER_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each resolver backend defines its own options. The Store section carries
// one map per backend and only the map matching Store.Type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains process-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Store selects where served files come from
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters" yaml:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port for the metrics HTTP endpoint. Default: 9090
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// StoreConfig selects and configures the file resolver backend.
type StoreConfig struct {
	// Type selects the backend: filesystem or s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem s3"`

	// Filesystem holds options for the filesystem backend (root)
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// S3 holds options for the S3 backend (region, bucket, key_prefix, ...)
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// AdaptersConfig contains protocol adapter configurations.
type AdaptersConfig struct {
	HTTP adapterhttp.HTTPConfig `mapstructure:"http" yaml:"http"`
}

// Load reads configuration from file and environment, applies defaults and
// validates the result.
//
// When configPath is empty the default location is searched
// ($XDG_CONFIG_HOME/fileshover/config.yaml or ~/.config/fileshover/config.yaml).
// A missing file is not an error: defaults and environment still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment binding and the file search path.
func setupViper(v *viper.Viper, configPath string) {
	// FILESHOVER_ADAPTERS_HTTP_PORT -> adapters.http.port
	v.SetEnvPrefix("FILESHOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers every known key so that Unmarshal sees values that
// only exist in the environment.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"logging.format",
		"logging.output",
		"server.shutdown_timeout",
		"server.metrics.enabled",
		"server.metrics.port",
		"store.type",
		"store.filesystem.root",
		"store.s3.region",
		"store.s3.bucket",
		"store.s3.key_prefix",
		"store.s3.endpoint",
		"store.s3.access_key_id",
		"store.s3.secret_access_key",
		"store.s3.max_retries",
		"adapters.http.enabled",
		"adapters.http.port",
		"adapters.http.workers",
		"adapters.http.read_timeout",
		"adapters.http.write_timeout",
		"adapters.http.shutdown_timeout",
		"adapters.http.metrics_log_interval",
		"adapters.http.rate_limit.requests_per_second",
		"adapters.http.rate_limit.burst",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fileshover")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fileshover")
}

// GetDefaultConfigPath returns the path Load searches when none is given.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists reports whether a config file exists at the default path.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

func GetConfigDir() string {
	return getConfigDir()
}
