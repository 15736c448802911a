package metrics

import (
	"errors"
	"testing"

	"github.com/driveinsight/fleet/core/factory"
	"github.com/driveinsight/fleet/core/model"
)

type countSink struct {
	ticks, publishes, alerts int
	err                      error
}

func (c *countSink) RecordTick(TickEvent) error {
	c.ticks++
	return c.err
}

func (c *countSink) RecordPublish(PublishEvent) error {
	c.publishes++
	return nil
}

func (c *countSink) RecordAlert(model.Alert) error {
	c.alerts++
	return nil
}

type tickOnly struct{ ticks int }

func (t *tickOnly) RecordTick(TickEvent) error {
	t.ticks++
	return nil
}

func TestMultiSink_ForwardsToCapableSinks(t *testing.T) {
	full := &countSink{}
	basic := &tickOnly{}
	m := NewMultiSink(full, basic)
	if err := m.RecordTick(TickEvent{Updated: 2}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := m.RecordPublish(PublishEvent{Delivered: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := m.RecordAlert(model.Alert{}); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if err := m.RecordSubscribers(3); err != nil {
		t.Fatalf("subscribers: %v", err)
	}
	if full.ticks != 1 || basic.ticks != 1 {
		t.Fatalf("tick not forwarded: %d %d", full.ticks, basic.ticks)
	}
	if full.publishes != 1 || full.alerts != 1 {
		t.Fatalf("optional recorders not forwarded")
	}
}

func TestMultiSink_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	first := &countSink{err: boom}
	second := &tickOnly{}
	if err := NewMultiSink(first, second).RecordTick(TickEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if second.ticks != 0 {
		t.Fatalf("second sink should not be reached")
	}
}

func TestNewMetricsSink(t *testing.T) {
	if err := RegisterMetricsSink("count-test", func(map[string]any) (MetricsSink, error) {
		return &countSink{}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("nil config: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink got %T", s)
	}
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "count-test"}})
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if _, ok := s.(*countSink); !ok {
		t.Fatalf("expected countSink got %T", s)
	}
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "count-test"}, {Type: "count-test"}})
	if err != nil {
		t.Fatalf("multi: %v", err)
	}
	if m, ok := s.(*MultiSink); !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks got %T", s)
	}
	if _, err := NewMetricsSink([]factory.ModuleConfig{{Type: "count-test"}, {Type: "missing"}}); err == nil {
		t.Fatalf("expected unknown type error")
	}
}
