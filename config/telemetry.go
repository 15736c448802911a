package config

import (
	"fmt"
	"strings"
)

// TelemetryConfig holds configuration for the MQTT telemetry ingest.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	StatePrefix string `json:"state_topic_prefix"`
	QoS         byte   `json:"qos"`
	// MaxSkewSeconds rejects messages whose ts lies further in the future.
	MaxSkewSeconds int `json:"max_skew_seconds"`
}

// SetDefaults fills unset fields.
func (c *TelemetryConfig) SetDefaults() {
	if c.StatePrefix == "" {
		c.StatePrefix = "fleet/telemetry"
	}
	if c.MaxSkewSeconds <= 0 {
		c.MaxSkewSeconds = 60
	}
}

// Validate checks the subscription settings.
func (c TelemetryConfig) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("telemetry: qos must be 0, 1 or 2")
	}
	if strings.ContainsAny(c.StatePrefix, "+#") {
		return fmt.Errorf("telemetry: state_topic_prefix must not contain wildcards")
	}
	return nil
}

// Topic is the subscription filter covering every vehicle.
func (c TelemetryConfig) Topic() string {
	return strings.TrimSuffix(c.StatePrefix, "/") + "/+"
}
