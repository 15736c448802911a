package metrics

import (
	"time"

	"github.com/driveinsight/fleet/core/model"
)

// TickEvent summarises one run of the position updater.
type TickEvent struct {
	Updated  int
	Skipped  int
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records updater ticks. Every sink implements it; richer
// events are exposed through the optional recorder interfaces below.
type MetricsSink interface {
	RecordTick(ev TickEvent) error
}

// PositionEvent carries the vehicles moved by a tick.
type PositionEvent struct {
	Vehicles []model.Vehicle
	Time     time.Time
}

// PositionRecorder records vehicle positions.
type PositionRecorder interface {
	RecordPositions(ev PositionEvent) error
}

// PublishEvent is the outcome of one broadcast.
type PublishEvent struct {
	Type        string
	Subscribers int
	Delivered   int
	Dropped     int
	Time        time.Time
}

// PublishRecorder records broadcast outcomes.
type PublishRecorder interface {
	RecordPublish(ev PublishEvent) error
}

// SubscriberRecorder tracks the number of connected subscribers.
type SubscriberRecorder interface {
	RecordSubscribers(n int) error
}

// IngestEvent describes a telemetry message received from a vehicle.
type IngestEvent struct {
	VehicleID string
	Accepted  bool
	Reason    string
	Time      time.Time
}

// IngestRecorder records telemetry ingest results.
type IngestRecorder interface {
	RecordIngest(ev IngestEvent) error
}

// AlertRecorder records alerts raised by the rule monitor.
type AlertRecorder interface {
	RecordAlert(a model.Alert) error
}

// FleetSizeRecorder records the number of vehicles in the store.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickEvent) error         { return nil }
func (NopSink) RecordPositions(PositionEvent) error { return nil }
func (NopSink) RecordPublish(PublishEvent) error   { return nil }
func (NopSink) RecordSubscribers(int) error        { return nil }
func (NopSink) RecordIngest(IngestEvent) error     { return nil }
func (NopSink) RecordAlert(model.Alert) error      { return nil }
func (NopSink) RecordFleetSize(int) error          { return nil }
