package config

import (
	"strings"
	"time"

	adapterhttp "github.com/marmos91/fileshover/pkg/adapter/http"
)

// DefaultRoot is the directory served when none is configured.
const DefaultRoot = "./public"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults and explicit values are preserved.
// Called after loading from file and environment.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["root"]; !ok {
		cfg.Filesystem["root"] = DefaultRoot
	}
	if _, ok := cfg.S3["max_retries"]; !ok {
		cfg.S3["max_retries"] = 10
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// A config without an http section (port 0) still gets a running
	// adapter. An explicit enabled: false with a port stays disabled.
	if !cfg.HTTP.Enabled && cfg.HTTP.Port == 0 {
		cfg.HTTP.Enabled = true
	}

	applyHTTPDefaults(&cfg.HTTP)
}

func applyHTTPDefaults(cfg *adapterhttp.HTTPConfig) {
	if cfg.Port == 0 {
		cfg.Port = 7878
	}
	if cfg.Workers == 0 {
		cfg.Workers = 10
	}
	// ReadTimeout and WriteTimeout stay 0: no deadlines unless asked for.
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// Used for generating sample configuration files and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Filesystem: make(map[string]any),
			S3: map[string]any{
				"region":     "us-east-1",
				"bucket":     "",
				"key_prefix": "",
			},
		},
		Adapters: AdaptersConfig{
			HTTP: adapterhttp.HTTPConfig{
				Enabled: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
