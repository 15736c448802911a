package rollup

import (
	"context"
	"time"

	"github.com/driveinsight/fleet/core/history"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/monitoring"
)

// Scheduler rolls up the previous day shortly after every UTC midnight.
type Scheduler struct {
	hist  history.Store
	sink  Sink
	log   logger.Logger
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
	// Delay is added after midnight so the last tick of the day is flushed.
	Delay time.Duration
}

func NewScheduler(hist history.Store, sink Sink, log logger.Logger) *Scheduler {
	return &Scheduler{hist: hist, sink: sink, log: logger.OrNop(log), now: time.Now, after: time.After, Delay: time.Minute}
}

// next returns how long to wait for the following run.
func (s *Scheduler) next() time.Duration {
	now := s.now().UTC()
	return Day(now).Add(24*time.Hour + s.Delay).Sub(now)
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.after(s.next()):
			s.RunOnce(ctx, s.now().Add(-24*time.Hour))
		}
	}
}

// RunOnce rolls up day and stores the rows. Failures are logged and reported.
func (s *Scheduler) RunOnce(ctx context.Context, day time.Time) int {
	var n int
	err := monitoring.Guard("rollup", func() {
		rows, err := Compute(ctx, s.hist, day)
		if err != nil {
			s.log.Errorf("rollup %s: %v", Day(day).Format(time.DateOnly), err)
			monitoring.CaptureException(err, map[string]string{"component": "rollup"})
			return
		}
		for _, r := range rows {
			s.sink.CreateDailyMetrics(r)
		}
		n = len(rows)
	})
	if err != nil {
		s.log.Errorf("%v", err)
	}
	s.log.Infof("rolled up %d vehicles for %s", n, Day(day).Format(time.DateOnly))
	return n
}
