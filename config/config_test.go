package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `server:
  address: ":9000"
  api_token: "secret"
  allowed_origins: ["http://localhost:5173"]
simulation:
  interval_seconds: 2
  seed: 42
  fleet_size: 50
alerts:
  speed_limit: 90
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  topic_prefix: "demo"
  qos: 1
telemetry:
  enabled: true
  state_topic_prefix: "demo/telemetry"
history:
  backend: "sqlite"
metrics:
  sinks:
    - type: "nop"
logging:
  level: "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"server.address", cfg.Server.Address, ":9000"},
		{"server.api_token", cfg.Server.APIToken, "secret"},
		{"server.allowed_origins", len(cfg.Server.AllowedOrigins), 1},
		{"server.shutdown_timeout_seconds", cfg.Server.ShutdownTimeoutSeconds, 10},
		{"simulation.interval_seconds", cfg.Simulation.IntervalSeconds, 2},
		{"simulation.seed", cfg.Simulation.Seed, uint64(42)},
		{"simulation.fleet_size", cfg.Simulation.FleetSize, 50},
		{"simulation.speed_jitter", cfg.Simulation.SpeedJitter, 5.0},
		{"alerts.speed_limit", cfg.Alerts.SpeedLimit, 90.0},
		{"alerts.low_fuel_pct", cfg.Alerts.LowFuelPct, 20},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.client_id", cfg.MQTT.ClientID, "cli"},
		{"mqtt.username", cfg.MQTT.Username, "user"},
		{"mqtt.password", cfg.MQTT.Password, "pass"},
		{"mqtt.topic_prefix", cfg.MQTT.TopicPrefix, "demo"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"telemetry.topic", cfg.Telemetry.Topic(), "demo/telemetry/+"},
		{"history.backend", cfg.History.Backend, "sqlite"},
		{"history.path", cfg.History.Path, "ticks.db"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"logging.level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10, cfg.Simulation.IntervalSeconds)
	assert.Equal(t, 0.001, cfg.Simulation.PositionJitterDeg)
	assert.Equal(t, "jsonl", cfg.History.Backend)
	assert.Equal(t, "ticks.jsonl", cfg.History.Path)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "prometheus", cfg.Metrics.Sinks[0].Type)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"server":{"address":":7000"},"history":{"backend":"nop"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, "nop", cfg.History.Module().Type)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", "server:\n  address: \":9000\"\n")
	t.Setenv("K_SERVER__ADDRESS", ":9100")
	t.Setenv("K_LOGGING__LEVEL", "warn")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Address)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"unsupported extension", "config.toml", "a = 1"},
		{"bad history backend", "config.yaml", "history:\n  backend: redis\n"},
		{"bad log level", "config.yaml", "logging:\n  level: loud\n"},
		{"mqtt without broker", "config.yaml", "mqtt:\n  enabled: true\n"},
		{"telemetry without broker", "config.yaml", "telemetry:\n  enabled: true\n"},
		{"telemetry wildcard", "config.yaml", "telemetry:\n  state_topic_prefix: a/#\n"},
		{"fleet size and fixture", "config.yaml", "simulation:\n  fleet_size: 3\n  fixture_file: f.yaml\n"},
		{"low fuel above 100", "config.yaml", "alerts:\n  low_fuel_pct: 150\n"},
		{"sink without type", "config.yaml", "metrics:\n  sinks:\n    - conf: {}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestHistoryModule(t *testing.T) {
	h := HistoryConfig{Backend: "jsonl", Path: "/tmp/t.jsonl"}
	h.SetDefaults()
	m := h.Module()
	assert.Equal(t, "jsonl", m.Type)
	assert.Equal(t, "/tmp/t.jsonl", m.Conf["path"])
	assert.Equal(t, 10, m.Conf["max_size_mb"])
}
