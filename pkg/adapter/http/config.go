package http

import (
	"fmt"
	"time"
)

// HTTPConfig holds configuration parameters for the HTTP adapter.
//
// Default values (applied by New if zero):
//   - Port: 7878
//   - Workers: 10
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m
//
// ReadTimeout and WriteTimeout have no default: zero leaves the socket
// without deadlines, so a stalled peer holds its worker until it goes away.
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port to listen on. If 0, defaults to 7878.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// Workers is the size of the fixed worker pool. Accepted connections
	// wait for a free worker; there is no other queue.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"min=0,max=10000"`

	// ReadTimeout bounds reading the request head. 0 disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the whole response. 0 disables it.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// connections during graceful shutdown before force-closing them.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// MetricsLogInterval is the interval for periodic load logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`

	// RateLimit throttles the accept loop. Zero values disable it.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures accept throttling.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate of connections handed to
	// workers. 0 means unlimited.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"min=0"`

	// Burst is the token bucket size. 0 derives it from the rate.
	Burst int `mapstructure:"burst" yaml:"burst" validate:"min=0"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Note: Enabled defaults are handled in pkg/config/defaults.go so that an
	// explicit false in a config file survives.

	if c.Port <= 0 {
		c.Port = 7878
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
}

// validate checks the configuration after defaults have been applied.
func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid Workers %d: must be >= 1", c.Workers)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid RateLimit.RequestsPerSecond %v: must be >= 0", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid RateLimit.Burst %d: must be >= 0", c.RateLimit.Burst)
	}
	return nil
}
