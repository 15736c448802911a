package simulation

import (
	"context"
	"math"
	"time"

	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/history"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/core/monitoring"
)

const (
	DefaultInterval       = 10 * time.Second
	DefaultPositionJitter = 0.001
	DefaultSpeedJitter    = 5.0
)

// Config controls the random walk applied to active vehicles.
type Config struct {
	Interval time.Duration
	// PositionJitter bounds the per-tick latitude and longitude offset in degrees.
	PositionJitter float64
	// SpeedJitter bounds the per-tick speed offset.
	SpeedJitter float64
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.PositionJitter <= 0 {
		c.PositionJitter = DefaultPositionJitter
	}
	if c.SpeedJitter <= 0 {
		c.SpeedJitter = DefaultSpeedJitter
	}
}

// TickResult lists what a tick changed.
type TickResult struct {
	Updated []model.Vehicle
	// Skipped holds vehicles that disappeared between the snapshot and the write.
	Skipped []string
}

// Updater periodically moves every active vehicle and announces each move.
type Updater struct {
	store   fleet.VehicleStore
	pub     broadcast.Publisher
	cfg     Config
	jitter  Jitter
	sink    metrics.MetricsSink
	history history.Store
	log     logger.Logger
	now     func() time.Time
	ticker  func(time.Duration) Ticker
}

// Option customises an Updater.
type Option func(*Updater)

func WithJitter(j Jitter) Option { return func(u *Updater) { u.jitter = j } }

func WithMetrics(s metrics.MetricsSink) Option { return func(u *Updater) { u.sink = s } }

func WithHistory(h history.Store) Option { return func(u *Updater) { u.history = h } }

func WithLogger(l logger.Logger) Option { return func(u *Updater) { u.log = l } }

func WithClock(now func() time.Time) Option { return func(u *Updater) { u.now = now } }

// WithTicker replaces the time.Ticker used by Run.
func WithTicker(f func(time.Duration) Ticker) Option { return func(u *Updater) { u.ticker = f } }

func NewUpdater(store fleet.VehicleStore, pub broadcast.Publisher, cfg Config, opts ...Option) *Updater {
	cfg.setDefaults()
	u := &Updater{
		store:   store,
		pub:     pub,
		cfg:     cfg,
		jitter:  NewUniformJitter(0),
		sink:    metrics.NopSink{},
		history: history.NopStore{},
		log:     logger.NopLogger{},
		now:     time.Now,
		ticker:  newTimeTicker,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Run ticks every configured interval until ctx is cancelled. The first
// tick happens one interval after start.
func (u *Updater) Run(ctx context.Context) error {
	t := u.ticker(u.cfg.Interval)
	defer t.Stop()
	u.log.Infof("position updater started (interval %s)", u.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			u.log.Infof("position updater stopped")
			return nil
		case <-t.C():
			u.Tick(ctx)
		}
	}
}

// Tick moves every active vehicle once. Failures are logged and reported;
// a tick never aborts the loop that calls it.
func (u *Updater) Tick(ctx context.Context) TickResult {
	start := u.now()
	var res TickResult
	if err := monitoring.Guard("position-updater", func() { res = u.tick(ctx) }); err != nil {
		u.log.Errorf("tick aborted: %v", err)
	}
	u.record(ctx, start, res)
	return res
}

func (u *Updater) tick(ctx context.Context) TickResult {
	var res TickResult
	for _, v := range u.store.List(fleet.Filter{Status: model.StatusActive}) {
		if ctx.Err() != nil {
			return res
		}
		// The snapshot may be stale: re-check status and walk from the
		// record as it is when the write happens.
		var stopped bool
		moved, ok := u.store.Mutate(v.ID, func(cur model.Vehicle) (model.VehiclePatch, bool) {
			if !cur.IsActive() {
				stopped = true
				return model.VehiclePatch{}, false
			}
			return model.PositionPatch(u.step(cur)), true
		})
		if stopped {
			u.log.Debugf("vehicle %s left active status during tick, not moved", v.ID)
			continue
		}
		if !ok {
			u.log.Warnf("vehicle %s vanished during tick, skipping", v.ID)
			res.Skipped = append(res.Skipped, v.ID)
			continue
		}
		res.Updated = append(res.Updated, moved)
		u.pub.Publish(ctx, model.VehicleUpdated(moved.ID))
	}
	return res
}

func (u *Updater) step(v model.Vehicle) (lat, lon, speed float64) {
	d, s := u.cfg.PositionJitter, u.cfg.SpeedJitter
	lat = clamp(v.Latitude+u.jitter.Uniform(-d, d), -90, 90)
	lon = clamp(v.Longitude+u.jitter.Uniform(-d, d), -180, 180)
	speed = math.Max(0, v.Speed+u.jitter.Uniform(-s, s))
	return lat, lon, speed
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}

func (u *Updater) record(ctx context.Context, start time.Time, res TickResult) {
	end := u.now()
	ev := metrics.TickEvent{Updated: len(res.Updated), Skipped: len(res.Skipped), Duration: end.Sub(start), Time: end}
	if err := u.sink.RecordTick(ev); err != nil {
		u.log.Errorf("tick metrics error: %v", err)
	}
	if len(res.Updated) > 0 {
		if rec, ok := u.sink.(metrics.PositionRecorder); ok {
			if err := rec.RecordPositions(metrics.PositionEvent{Vehicles: res.Updated, Time: end}); err != nil {
				u.log.Errorf("position metrics error: %v", err)
			}
		}
	}
	if rec, ok := u.sink.(metrics.FleetSizeRecorder); ok {
		if err := rec.RecordFleetSize(len(u.store.List(fleet.Filter{}))); err != nil {
			u.log.Errorf("fleet size metrics error: %v", err)
		}
	}
	tr := history.TickRecord{
		Timestamp:  end,
		DurationMS: float64(ev.Duration.Microseconds()) / 1000,
		Skipped:    res.Skipped,
	}
	for _, v := range res.Updated {
		tr.Updated = append(tr.Updated, history.Position{VehicleID: v.ID, Latitude: v.Latitude, Longitude: v.Longitude, Speed: v.Speed})
	}
	if err := u.history.Append(ctx, tr); err != nil {
		u.log.Errorf("tick history error: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "position-updater"})
	}
	u.log.Debugw("tick", map[string]any{"updated": ev.Updated, "skipped": ev.Skipped, "duration_ms": tr.DurationMS})
}
