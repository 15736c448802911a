package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/driveinsight/fleet/core/alerts"
	"github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/infra/mqtt"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Simulation SimulationConfig `json:"simulation"`
	Alerts     alerts.Config    `json:"alerts"`
	Metrics    metrics.Config   `json:"metrics"`
	MQTT       mqtt.Config      `json:"mqtt"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
	History    HistoryConfig    `json:"history"`
	Logging    LoggingConfig    `json:"logging"`
	Sentry     SentryConfig     `json:"sentry"`
}

// EnvPrefix marks environment overrides: K_SERVER__ADDRESS sets
// server.address.
const EnvPrefix = "K_"

// Load reads path (yaml or json), applies K_ environment overrides, fills
// defaults and validates every section. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Simulation.SetDefaults()
	c.Alerts.SetDefaults()
	if len(c.Metrics.Sinks) == 0 {
		c.Metrics.Sinks = append(c.Metrics.Sinks, defaultSink)
	}
	c.MQTT.SetDefaults()
	c.Telemetry.SetDefaults()
	c.History.SetDefaults()
	c.Logging.SetDefaults()
}

func (c Config) Validate() error {
	validators := []struct {
		section string
		fn      func() error
	}{
		{"server", c.Server.Validate},
		{"simulation", c.Simulation.Validate},
		{"alerts", c.Alerts.Validate},
		{"mqtt", c.MQTT.Validate},
		{"telemetry", c.Telemetry.Validate},
		{"history", c.History.Validate},
		{"logging", c.Logging.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("config %s: %w", v.section, err)
		}
	}
	if c.Telemetry.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("config telemetry: mqtt.broker is required")
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("config metrics: sink %d has no type", i)
		}
	}
	return nil
}
