package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/infra/logger"
)

// InfluxSink writes ticks, vehicle positions and alerts to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint. A trailing
// /api/v2/write path is tolerated.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// instance is unhealthy so the service can start without it.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) RecordTick(ev coremetrics.TickEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("position_tick").
		AddTag("component", "position_updater").
		AddField("updated", ev.Updated).
		AddField("skipped", ev.Skipped).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPositions writes one vehicle_position point per moved vehicle.
func (s *InfluxSink) RecordPositions(ev coremetrics.PositionEvent) error {
	if len(ev.Vehicles) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(ev.Vehicles))
	for _, v := range ev.Vehicles {
		points = append(points, write.NewPointWithMeasurement("vehicle_position").
			AddTag("vehicle_id", v.ID).
			AddTag("corridor", string(v.Corridor)).
			AddTag("vehicle_type", string(v.VehicleType)).
			AddField("latitude", v.Latitude).
			AddField("longitude", v.Longitude).
			AddField("speed", round3(v.Speed)).
			AddField("fuel", v.Fuel).
			SetTime(ev.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func (s *InfluxSink) RecordAlert(a model.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fleet_alert").
		AddTag("vehicle_id", a.VehicleID).
		AddTag("type", string(a.Type)).
		AddTag("severity", string(a.Severity)).
		AddField("message", a.Message).
		SetTime(a.CreatedAt)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
