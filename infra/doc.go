// Package infra holds the adapters behind the core interfaces: the MQTT
// bridge and telemetry ingest, the Prometheus and InfluxDB sinks, the
// zerolog logger and the Sentry monitor. Core packages never import infra.
package infra
