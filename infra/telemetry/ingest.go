// Package telemetry applies position reports pushed by vehicles over MQTT
// to the vehicle store.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/driveinsight/fleet/config"
	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/logger"
	coremetrics "github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/core/monitoring"
	infmqtt "github.com/driveinsight/fleet/infra/mqtt"
)

// Rejection reasons recorded on the metrics sink.
const (
	ReasonDecode  = "decode"
	ReasonInvalid = "invalid"
	ReasonUnknown = "unknown_vehicle"
	ReasonStale   = "future_timestamp"
)

var (
	// ErrUnknownVehicle is returned for reports about vehicles not in the store.
	ErrUnknownVehicle = errors.New("telemetry: unknown vehicle")
	// ErrInvalidReport is returned for reports with out-of-range values.
	ErrInvalidReport = errors.New("telemetry: invalid report")
)

// Report is the JSON payload a vehicle publishes on
// <state_topic_prefix>/<vehicle_id>. Absent fields are left unchanged.
type Report struct {
	VehicleID string               `json:"vehicle_id"`
	Latitude  *float64             `json:"latitude"`
	Longitude *float64             `json:"longitude"`
	Speed     *float64             `json:"speed"`
	Fuel      *int                 `json:"fuel"`
	Status    *model.VehicleStatus `json:"status"`
	TS        *int64               `json:"ts"`
}

func (r Report) patch() (model.VehiclePatch, error) {
	p := model.VehiclePatch{Latitude: r.Latitude, Longitude: r.Longitude, Status: r.Status}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		return p, fmt.Errorf("%w: latitude %v", ErrInvalidReport, *r.Latitude)
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		return p, fmt.Errorf("%w: longitude %v", ErrInvalidReport, *r.Longitude)
	}
	if r.Status != nil && !r.Status.Valid() {
		return p, fmt.Errorf("%w: status %q", ErrInvalidReport, *r.Status)
	}
	if r.Speed != nil {
		s := math.Max(0, *r.Speed)
		p.Speed = &s
	}
	if r.Fuel != nil {
		f := min(max(*r.Fuel, 0), 100)
		p.Fuel = &f
	}
	if p.Empty() {
		return p, fmt.Errorf("%w: no fields", ErrInvalidReport)
	}
	return p, nil
}

// Ingestor turns telemetry reports into store updates and notifications.
type Ingestor struct {
	cfg   config.TelemetryConfig
	store fleet.VehicleStore
	pub   broadcast.Publisher
	sink  coremetrics.MetricsSink
	log   logger.Logger
	clock func() time.Time
}

// NewIngestor builds an Ingestor. Nil sink and logger fall back to no-ops.
func NewIngestor(cfg config.TelemetryConfig, store fleet.VehicleStore, pub broadcast.Publisher, sink coremetrics.MetricsSink, log logger.Logger) *Ingestor {
	cfg.SetDefaults()
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Ingestor{cfg: cfg, store: store, pub: pub, sink: sink, log: logger.OrNop(log), clock: time.Now}
}

// Start connects to the broker, subscribes to the state topic and blocks
// until ctx is done.
func (i *Ingestor) Start(ctx context.Context, mqttCfg infmqtt.Config) error {
	cli, err := infmqtt.Dial(mqttCfg, "telemetry", i.log, func(c infmqtt.Client) {
		i.subscribe(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	<-ctx.Done()
	if cli.IsConnected() {
		cli.Disconnect(250)
	}
	return nil
}

func (i *Ingestor) subscribe(ctx context.Context, c infmqtt.Client) {
	topic := i.cfg.Topic()
	token := c.Subscribe(topic, i.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		_ = monitoring.Guard("telemetry", func() {
			if err := i.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
				i.log.Warnf("telemetry %s: %v", msg.Topic(), err)
			}
		})
	})
	if token.Wait() && token.Error() != nil {
		i.log.Errorf("subscribe %s: %v", topic, token.Error())
		monitoring.CaptureException(token.Error(), map[string]string{"module": "telemetry", "topic": topic})
		return
	}
	i.log.Infof("subscribed to %s", topic)
}

// Handle applies one report. The vehicle id falls back to the last topic
// segment when the payload omits it.
func (i *Ingestor) Handle(ctx context.Context, topic string, payload []byte) error {
	var r Report
	if err := json.Unmarshal(payload, &r); err != nil {
		i.record(extractID(topic), false, ReasonDecode)
		return fmt.Errorf("decode: %w", err)
	}
	if r.VehicleID == "" {
		r.VehicleID = extractID(topic)
	}
	if r.TS != nil {
		ts := time.Unix(*r.TS, 0)
		if ts.Sub(i.clock()) > time.Duration(i.cfg.MaxSkewSeconds)*time.Second {
			i.record(r.VehicleID, false, ReasonStale)
			return fmt.Errorf("%w: ts %s is in the future", ErrInvalidReport, ts.UTC().Format(time.RFC3339))
		}
	}
	p, err := r.patch()
	if err != nil {
		i.record(r.VehicleID, false, ReasonInvalid)
		return err
	}
	if _, ok := i.store.Update(r.VehicleID, p); !ok {
		i.record(r.VehicleID, false, ReasonUnknown)
		return fmt.Errorf("%w: %s", ErrUnknownVehicle, r.VehicleID)
	}
	i.record(r.VehicleID, true, "")
	i.log.Debugw("telemetry applied", map[string]any{"vehicle_id": r.VehicleID, "topic": topic})
	i.pub.Publish(ctx, model.VehicleUpdated(r.VehicleID))
	return nil
}

func (i *Ingestor) record(id string, accepted bool, reason string) {
	rec, ok := i.sink.(coremetrics.IngestRecorder)
	if !ok {
		return
	}
	ev := coremetrics.IngestEvent{VehicleID: id, Accepted: accepted, Reason: reason, Time: i.clock()}
	if err := rec.RecordIngest(ev); err != nil {
		i.log.Errorf("ingest metrics error: %v", err)
	}
}

func extractID(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}
