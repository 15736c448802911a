// Package metrics defines the sinks that observe the fleet service. The
// required MetricsSink records position updater ticks; optional recorder
// interfaces cover broadcast fan-out, telemetry ingest, alerts and vehicle
// positions. Sinks are built from configuration through the factory
// registry and combined with NewMultiSink when more than one is configured.
package metrics
