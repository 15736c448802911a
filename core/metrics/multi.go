package metrics

import "github.com/driveinsight/fleet/core/model"

// MultiSink fans events out to several sinks. Optional recorders are only
// invoked on sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards the tick to all sinks, returning the first error.
func (m *MultiSink) RecordTick(ev TickEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTick(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordPositions(ev PositionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PositionRecorder); ok {
			if err := rec.RecordPositions(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordPublish(ev PublishEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PublishRecorder); ok {
			if err := rec.RecordPublish(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordSubscribers(n int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SubscriberRecorder); ok {
			if err := rec.RecordSubscribers(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordIngest(ev IngestEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(IngestRecorder); ok {
			if err := rec.RecordIngest(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordAlert(a model.Alert) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AlertRecorder); ok {
			if err := rec.RecordAlert(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordFleetSize(size int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetSizeRecorder); ok {
			if err := rec.RecordFleetSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}
