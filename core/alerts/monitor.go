package alerts

import (
	"context"

	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/core/monitoring"
)

// SubscriberRegistry is the part of broadcast.Hub the monitor needs.
type SubscriberRegistry interface {
	Register(s broadcast.Subscriber) error
	Unregister(s broadcast.Subscriber)
}

// Monitor evaluates rules against vehicles as update notifications arrive.
type Monitor struct {
	vehicles fleet.VehicleStore
	alerts   fleet.AlertStore
	rules    []Rule
	sink     metrics.MetricsSink
	log      logger.Logger
	buffer   int
}

func NewMonitor(vehicles fleet.VehicleStore, alerts fleet.AlertStore, rules []Rule, sink metrics.MetricsSink, log logger.Logger) *Monitor {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Monitor{vehicles: vehicles, alerts: alerts, rules: rules, sink: sink, log: logger.OrNop(log), buffer: 256}
}

// Evaluate applies every rule to v and returns the alerts it raised. A rule
// that already has an active alert for v raises nothing.
func (m *Monitor) Evaluate(v model.Vehicle) []model.Alert {
	var raised []model.Alert
	for _, r := range m.rules {
		if !r.Match(v) {
			continue
		}
		a, created := m.alerts.RaiseAlert(model.Alert{
			VehicleID: v.ID,
			Type:      r.Type,
			Severity:  r.Severity,
			Message:   r.Message(v),
		})
		if !created {
			continue
		}
		m.log.Infof("alert %s raised for %s", a.Type, a.VehicleID)
		if rec, ok := m.sink.(metrics.AlertRecorder); ok {
			if err := rec.RecordAlert(a); err != nil {
				m.log.Errorf("alert metrics error: %v", err)
			}
		}
		raised = append(raised, a)
	}
	return raised
}

// Sweep evaluates every vehicle in the store.
func (m *Monitor) Sweep() int {
	n := 0
	for _, v := range m.vehicles.List(fleet.Filter{}) {
		n += len(m.Evaluate(v))
	}
	return n
}

// Run subscribes to reg and evaluates each notified vehicle until ctx is
// cancelled. If the subscription is dropped for falling behind, the monitor
// resubscribes and sweeps the whole fleet to catch up.
func (m *Monitor) Run(ctx context.Context, reg SubscriberRegistry) error {
	m.Sweep()
	for {
		sub := broadcast.NewChanSubscriber("alerts-monitor", m.buffer)
		if err := reg.Register(sub); err != nil {
			return err
		}
		if !m.consume(ctx, sub) {
			reg.Unregister(sub)
			_ = sub.Close()
			return nil
		}
		m.log.Warnf("alert subscription dropped, resubscribing")
		m.Sweep()
	}
}

// consume reports false when ctx ended and true when the channel closed.
func (m *Monitor) consume(ctx context.Context, sub *broadcast.ChanSubscriber) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case n, ok := <-sub.C():
			if !ok {
				return ctx.Err() == nil
			}
			if n.Type != model.NotificationVehicleUpdate {
				continue
			}
			v, found := m.vehicles.Get(n.VehicleID)
			if !found {
				continue
			}
			if err := monitoring.Guard("alerts-monitor", func() { m.Evaluate(v) }); err != nil {
				m.log.Errorf("evaluate %s: %v", v.ID, err)
			}
		}
	}
}
