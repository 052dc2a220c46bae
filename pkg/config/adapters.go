package config

import (
	"fmt"

	"github.com/marmos91/fileshover/pkg/adapter"
	adapterhttp "github.com/marmos91/fileshover/pkg/adapter/http"
	"github.com/marmos91/fileshover/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// httpMetrics may be nil, in which case the adapter records nothing.
func CreateAdapters(cfg *Config, httpMetrics metrics.HTTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.HTTP.Enabled {
		adapters = append(adapters, adapterhttp.New(cfg.Adapters.HTTP, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
