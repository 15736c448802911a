package config

import (
	"fmt"
	"time"
)

// ServerConfig configures the HTTP API and the WebSocket endpoint.
type ServerConfig struct {
	Address string `json:"address"`
	// APIToken, when set, is required as a bearer token on write requests.
	APIToken               string   `json:"api_token"`
	ShutdownTimeoutSeconds int      `json:"shutdown_timeout_seconds"`
	AllowedOrigins         []string `json:"allowed_origins"`
	WSWriteTimeoutSeconds  int      `json:"ws_write_timeout_seconds"`
	WSPingIntervalSeconds  int      `json:"ws_ping_interval_seconds"`
	WSQueueSize            int      `json:"ws_queue_size"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = 10
	}
	if c.WSWriteTimeoutSeconds <= 0 {
		c.WSWriteTimeoutSeconds = 5
	}
	if c.WSPingIntervalSeconds <= 0 {
		c.WSPingIntervalSeconds = 30
	}
	if c.WSQueueSize <= 0 {
		c.WSQueueSize = 32
	}
}

func (c ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
