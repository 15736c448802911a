package metrics

import "github.com/driveinsight/fleet/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr is where /metrics is served when it is not mounted on
	// the API server. Empty disables the standalone listener.
	PrometheusAddr string `json:"prometheus_addr"`
}
