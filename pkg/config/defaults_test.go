package config

import (
	"testing"
	"time"

	adapterhttp "github.com/marmos91/fileshover/pkg/adapter/http"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_LogLevelNormalized(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Server.Metrics.Port)
	}
	if cfg.Server.Metrics.Enabled {
		t.Error("Expected metrics to stay disabled")
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "filesystem" {
		t.Errorf("Expected default store type 'filesystem', got %q", cfg.Store.Type)
	}
	if cfg.Store.Filesystem == nil || cfg.Store.S3 == nil {
		t.Fatal("Expected option maps to be initialized")
	}
	if root := cfg.Store.Filesystem["root"]; root != DefaultRoot {
		t.Errorf("Expected default root %q, got %v", DefaultRoot, root)
	}
	if retries := cfg.Store.S3["max_retries"]; retries != 10 {
		t.Errorf("Expected default max_retries 10, got %v", retries)
	}
}

func TestApplyDefaults_PreservesExplicitStoreValues(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{
			Type:       "s3",
			Filesystem: map[string]any{"root": "/data"},
			S3:         map[string]any{"bucket": "b", "max_retries": 3},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "s3" {
		t.Errorf("Expected type 's3' preserved, got %q", cfg.Store.Type)
	}
	if cfg.Store.Filesystem["root"] != "/data" {
		t.Errorf("Expected root preserved, got %v", cfg.Store.Filesystem["root"])
	}
	if cfg.Store.S3["max_retries"] != 3 {
		t.Errorf("Expected max_retries preserved, got %v", cfg.Store.S3["max_retries"])
	}
}

func TestApplyDefaults_HTTP(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	http := cfg.Adapters.HTTP
	if !http.Enabled {
		t.Error("Expected HTTP adapter enabled when unconfigured")
	}
	if http.Port != 7878 {
		t.Errorf("Expected default port 7878, got %d", http.Port)
	}
	if http.Workers != 10 {
		t.Errorf("Expected default 10 workers, got %d", http.Workers)
	}
	if http.ReadTimeout != 0 || http.WriteTimeout != 0 {
		t.Errorf("Expected no socket deadlines by default, got read=%v write=%v", http.ReadTimeout, http.WriteTimeout)
	}
	if http.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", http.ShutdownTimeout)
	}
	if http.MetricsLogInterval != 5*time.Minute {
		t.Errorf("Expected default metrics log interval 5m, got %v", http.MetricsLogInterval)
	}
	if http.RateLimit.RequestsPerSecond != 0 {
		t.Errorf("Expected rate limiting off by default, got %v", http.RateLimit.RequestsPerSecond)
	}
}

func TestApplyDefaults_ExplicitlyDisabledHTTP(t *testing.T) {
	cfg := &Config{
		Adapters: AdaptersConfig{
			HTTP: adapterhttp.HTTPConfig{Enabled: false, Port: 8080},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Adapters.HTTP.Enabled {
		t.Error("Expected explicitly configured adapter to stay disabled")
	}
	if cfg.Adapters.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080 preserved, got %d", cfg.Adapters.HTTP.Port)
	}
}

func TestApplyDefaults_PreservesExplicitHTTPValues(t *testing.T) {
	cfg := &Config{
		Adapters: AdaptersConfig{
			HTTP: adapterhttp.HTTPConfig{
				Enabled:     true,
				Port:        8443,
				Workers:     32,
				ReadTimeout: 2 * time.Second,
			},
		},
	}
	ApplyDefaults(cfg)

	http := cfg.Adapters.HTTP
	if http.Port != 8443 || http.Workers != 32 || http.ReadTimeout != 2*time.Second {
		t.Errorf("Explicit values were overwritten: %+v", http)
	}
}
