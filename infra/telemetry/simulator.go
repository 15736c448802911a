package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/driveinsight/fleet/config"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/core/simulation"
	infmqtt "github.com/driveinsight/fleet/infra/mqtt"
)

// SimOptions shape the reports a Simulator publishes.
type SimOptions struct {
	Interval       time.Duration
	PositionJitter float64
	SpeedJitter    float64
	// FuelBurn is the largest fuel drop per report, in percent.
	FuelBurn float64
}

func (o *SimOptions) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.PositionJitter <= 0 {
		o.PositionJitter = simulation.DefaultPositionJitter
	}
	if o.SpeedJitter <= 0 {
		o.SpeedJitter = simulation.DefaultSpeedJitter
	}
	if o.FuelBurn <= 0 {
		o.FuelBurn = 1
	}
}

// Simulator plays the vehicle side of the telemetry link: it walks a set of
// vehicles and publishes one report per active vehicle every interval.
type Simulator struct {
	cli      infmqtt.Client
	prefix   string
	qos      byte
	opts     SimOptions
	vehicles []model.Vehicle
	fuel     []float64
	jitter   simulation.Jitter
	log      logger.Logger
	now      func() time.Time
}

func NewSimulator(cli infmqtt.Client, cfg config.TelemetryConfig, vehicles []model.Vehicle, jitter simulation.Jitter, opts SimOptions, log logger.Logger) *Simulator {
	cfg.SetDefaults()
	opts.setDefaults()
	vs := append([]model.Vehicle(nil), vehicles...)
	fuel := make([]float64, len(vs))
	for i, v := range vs {
		fuel[i] = float64(v.Fuel)
	}
	return &Simulator{
		cli:      cli,
		prefix:   strings.TrimSuffix(cfg.StatePrefix, "/"),
		qos:      cfg.QoS,
		opts:     opts,
		vehicles: vs,
		fuel:     fuel,
		jitter:   jitter,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}

// Step advances every active vehicle once and returns the reports to send.
func (s *Simulator) Step() []Report {
	d, sp := s.opts.PositionJitter, s.opts.SpeedJitter
	ts := s.now().Unix()
	var out []Report
	for i := range s.vehicles {
		v := &s.vehicles[i]
		if v.Status != model.StatusActive {
			continue
		}
		v.Latitude = math.Min(90, math.Max(-90, v.Latitude+s.jitter.Uniform(-d, d)))
		v.Longitude = math.Min(180, math.Max(-180, v.Longitude+s.jitter.Uniform(-d, d)))
		v.Speed = math.Max(0, v.Speed+s.jitter.Uniform(-sp, sp))
		s.fuel[i] = math.Max(0, s.fuel[i]-s.jitter.Uniform(0, s.opts.FuelBurn))
		v.Fuel = int(math.Round(s.fuel[i]))

		lat, lon, speed, fuel := v.Latitude, v.Longitude, v.Speed, v.Fuel
		out = append(out, Report{VehicleID: v.ID, Latitude: &lat, Longitude: &lon, Speed: &speed, Fuel: &fuel, TS: &ts})
	}
	return out
}

// Publish sends r on the vehicle's state topic.
func (s *Simulator) Publish(r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	topic := s.prefix + "/" + r.VehicleID
	token := s.cli.Publish(topic, s.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Run publishes a batch every interval until ctx is cancelled. It returns
// the number of reports sent.
func (s *Simulator) Run(ctx context.Context) (int, error) {
	t := time.NewTicker(s.opts.Interval)
	defer t.Stop()
	sent := 0
	for {
		for _, r := range s.Step() {
			if err := s.Publish(r); err != nil {
				s.log.Warnf("%s: %v", r.VehicleID, err)
				continue
			}
			sent++
		}
		select {
		case <-ctx.Done():
			return sent, nil
		case <-t.C:
		}
	}
}
