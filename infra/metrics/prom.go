package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
)

// PromSink exposes fleet activity as Prometheus metrics.
type PromSink struct {
	ticks       prometheus.Counter
	tickResults *prometheus.CounterVec
	tickLatency prometheus.Histogram
	published   *prometheus.CounterVec
	subscribers prometheus.Gauge
	ingest      *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	fleet       prometheus.Gauge
}

// NewPromSink registers the fleet metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. Collectors that are
// already registered are reused, so building two sinks on the same registry
// is safe.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_updater_ticks_total",
			Help: "Number of position updater ticks",
		}),
		tickResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_updater_vehicles_total",
			Help: "Vehicles handled by the position updater by result",
		}, []string{"result"}),
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleet_updater_tick_duration_seconds",
			Help:    "Time spent in one position updater tick",
			Buckets: prometheus.DefBuckets,
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_notifications_total",
			Help: "Update notifications by delivery outcome",
		}, []string{"type", "outcome"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_broadcast_subscribers",
			Help: "Connected broadcast subscribers",
		}),
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_telemetry_messages_total",
			Help: "Telemetry messages received from vehicles",
		}, []string{"accepted", "reason"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_alerts_raised_total",
			Help: "Alerts raised by the rule monitor",
		}, []string{"type", "severity"}),
		fleet: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_vehicles",
			Help: "Vehicles held in the store",
		}),
	}
	var err error
	if s.ticks, err = register(reg, s.ticks); err != nil {
		return nil, err
	}
	if s.tickResults, err = register(reg, s.tickResults); err != nil {
		return nil, err
	}
	if s.tickLatency, err = register(reg, s.tickLatency); err != nil {
		return nil, err
	}
	if s.published, err = register(reg, s.published); err != nil {
		return nil, err
	}
	if s.subscribers, err = register(reg, s.subscribers); err != nil {
		return nil, err
	}
	if s.ingest, err = register(reg, s.ingest); err != nil {
		return nil, err
	}
	if s.alerts, err = register(reg, s.alerts); err != nil {
		return nil, err
	}
	if s.fleet, err = register(reg, s.fleet); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg or returns the collector registered before it.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordTick(ev coremetrics.TickEvent) error {
	s.ticks.Inc()
	s.tickResults.WithLabelValues("updated").Add(float64(ev.Updated))
	s.tickResults.WithLabelValues("skipped").Add(float64(ev.Skipped))
	s.tickLatency.Observe(ev.Duration.Seconds())
	return nil
}

func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.published.WithLabelValues(ev.Type, "delivered").Add(float64(ev.Delivered))
	s.published.WithLabelValues(ev.Type, "dropped").Add(float64(ev.Dropped))
	return nil
}

func (s *PromSink) RecordSubscribers(n int) error {
	s.subscribers.Set(float64(n))
	return nil
}

func (s *PromSink) RecordIngest(ev coremetrics.IngestEvent) error {
	s.ingest.WithLabelValues(strconv.FormatBool(ev.Accepted), ev.Reason).Inc()
	return nil
}

func (s *PromSink) RecordAlert(a model.Alert) error {
	s.alerts.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	return nil
}

func (s *PromSink) RecordFleetSize(size int) error {
	s.fleet.Set(float64(size))
	return nil
}
