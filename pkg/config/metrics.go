package config

import (
	"github.com/marmos91/fileshover/pkg/metrics"
	promMetrics "github.com/marmos91/fileshover/pkg/metrics/prometheus"
	storeS3 "github.com/marmos91/fileshover/pkg/store/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// HTTPMetrics is the collector for the HTTP adapter (never nil)
	HTTPMetrics metrics.HTTPMetrics

	// S3Metrics is the collector for the S3 resolver (nil if disabled)
	S3Metrics storeS3.Metrics
}

// InitializeMetrics creates the metrics components described by cfg.
//
// When metrics are disabled the adapter gets a no-op collector and no
// server is created.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			HTTPMetrics: metrics.NewNoopHTTPMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:      server,
		HTTPMetrics: promMetrics.NewHTTPMetrics(),
		S3Metrics:   promMetrics.NewS3Metrics(),
	}
}
