package simulation

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/history"
	"github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
)

// fixedJitter returns min + frac*(max-min) for every draw.
type fixedJitter struct{ frac float64 }

func (f fixedJitter) Uniform(min, max float64) float64 { return min + f.frac*(max-min) }

type capturePublisher struct {
	mu  sync.Mutex
	got []model.Notification
}

func (c *capturePublisher) Publish(_ context.Context, n model.Notification) {
	c.mu.Lock()
	c.got = append(c.got, n)
	c.mu.Unlock()
}

func (c *capturePublisher) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.got))
	for i, n := range c.got {
		out[i] = n.VehicleID
	}
	return out
}

type tickSink struct {
	metrics.NopSink
	ticks     []metrics.TickEvent
	positions int
}

func (s *tickSink) RecordTick(ev metrics.TickEvent) error {
	s.ticks = append(s.ticks, ev)
	return nil
}

func (s *tickSink) RecordPositions(ev metrics.PositionEvent) error {
	s.positions += len(ev.Vehicles)
	return nil
}

func seeded(t *testing.T, vs ...model.Vehicle) *fleet.MemoryStore {
	t.Helper()
	s := fleet.NewMemoryStore(nil)
	require.NoError(t, fleet.Populate(s, vs))
	return s
}

func vehicle(id string, status model.VehicleStatus, speed float64) model.Vehicle {
	return model.Vehicle{ID: id, DriverName: "d", Corridor: model.CorridorBeira, VehicleType: model.TypeVan,
		Speed: speed, Fuel: 50, Status: status, Latitude: -19.8, Longitude: 34.8}
}

func TestTick_OnlyActiveVehiclesMove(t *testing.T) {
	a := vehicle("A", model.StatusActive, 40)
	b := vehicle("B", model.StatusIdle, 0)
	store := seeded(t, a, b)
	pub := &capturePublisher{}
	u := NewUpdater(store, pub, Config{SpeedJitter: 5})

	for i := 0; i < 20; i++ {
		res := u.Tick(context.Background())
		require.Len(t, res.Updated, 1)
	}
	gotB, _ := store.Get("B")
	assert.Equal(t, 0.0, gotB.Speed)
	assert.Equal(t, b.Latitude, gotB.Latitude)
	assert.Equal(t, b.Longitude, gotB.Longitude)
	assert.Len(t, pub.ids(), 20)
	for _, id := range pub.ids() {
		assert.Equal(t, "A", id)
	}
}

func TestTick_SingleStepBounds(t *testing.T) {
	a := vehicle("A", model.StatusActive, 40)
	store := seeded(t, a, vehicle("B", model.StatusIdle, 0))
	u := NewUpdater(store, &capturePublisher{}, Config{PositionJitter: 0.001, SpeedJitter: 5}, WithJitter(NewUniformJitter(42)))

	res := u.Tick(context.Background())
	require.Len(t, res.Updated, 1)
	got := res.Updated[0]
	assert.LessOrEqual(t, math.Abs(got.Latitude-a.Latitude), 0.001)
	assert.LessOrEqual(t, math.Abs(got.Longitude-a.Longitude), 0.001)
	assert.GreaterOrEqual(t, got.Speed, 35.0)
	assert.LessOrEqual(t, got.Speed, 45.0)
	b, _ := store.Get("B")
	assert.Equal(t, 0.0, b.Speed)
}

func TestTick_SpeedNeverNegative(t *testing.T) {
	store := seeded(t, vehicle("A", model.StatusActive, 1))
	u := NewUpdater(store, &capturePublisher{}, Config{SpeedJitter: 5}, WithJitter(fixedJitter{frac: 0}))
	res := u.Tick(context.Background())
	require.Len(t, res.Updated, 1)
	assert.Equal(t, 0.0, res.Updated[0].Speed)
}

func TestTick_DeterministicJitter(t *testing.T) {
	store := seeded(t, vehicle("A", model.StatusActive, 40))
	u := NewUpdater(store, &capturePublisher{}, Config{PositionJitter: 0.001, SpeedJitter: 5}, WithJitter(fixedJitter{frac: 1}))
	res := u.Tick(context.Background())
	require.Len(t, res.Updated, 1)
	assert.InDelta(t, -19.799, res.Updated[0].Latitude, 1e-9)
	assert.InDelta(t, 34.801, res.Updated[0].Longitude, 1e-9)
	assert.InDelta(t, 45, res.Updated[0].Speed, 1e-9)
}

// vanishingStore deletes a vehicle right after List returns it.
type vanishingStore struct {
	*fleet.MemoryStore
	victim string
}

func (v *vanishingStore) List(f fleet.Filter) []model.Vehicle {
	out := v.MemoryStore.List(f)
	v.MemoryStore.Delete(v.victim)
	return out
}

func TestTick_DeletedMidTickIsSkipped(t *testing.T) {
	base := seeded(t, vehicle("A", model.StatusActive, 40), vehicle("C", model.StatusActive, 30))
	store := &vanishingStore{MemoryStore: base, victim: "A"}
	pub := &capturePublisher{}
	sink := &tickSink{}
	u := NewUpdater(store, pub, Config{}, WithMetrics(sink))

	res := u.Tick(context.Background())
	assert.Equal(t, []string{"A"}, res.Skipped)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, "C", res.Updated[0].ID)
	assert.Equal(t, []string{"C"}, pub.ids())
	_, ok := base.Get("A")
	assert.False(t, ok)

	require.Len(t, sink.ticks, 1)
	assert.Equal(t, 1, sink.ticks[0].Updated)
	assert.Equal(t, 1, sink.ticks[0].Skipped)
	assert.Equal(t, 1, sink.positions)
}

// stoppingStore sets a vehicle idle right after List returns it, as a
// concurrent PATCH would.
type stoppingStore struct {
	*fleet.MemoryStore
	target string
}

func (s *stoppingStore) List(f fleet.Filter) []model.Vehicle {
	out := s.MemoryStore.List(f)
	idle := model.StatusIdle
	s.MemoryStore.Update(s.target, model.VehiclePatch{Status: &idle})
	return out
}

func TestTick_VehicleStoppedMidTickIsNotMoved(t *testing.T) {
	a := vehicle("A", model.StatusActive, 40)
	base := seeded(t, a, vehicle("C", model.StatusActive, 30))
	store := &stoppingStore{MemoryStore: base, target: "A"}
	pub := &capturePublisher{}
	u := NewUpdater(store, pub, Config{PositionJitter: 0.001, SpeedJitter: 5}, WithJitter(fixedJitter{frac: 1}))

	res := u.Tick(context.Background())
	require.Len(t, res.Updated, 1)
	assert.Equal(t, "C", res.Updated[0].ID)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, []string{"C"}, pub.ids())

	got, ok := base.Get("A")
	require.True(t, ok)
	assert.Equal(t, model.StatusIdle, got.Status)
	assert.Equal(t, a.Latitude, got.Latitude)
	assert.Equal(t, a.Longitude, got.Longitude)
	assert.Equal(t, a.Speed, got.Speed)
}

// speedingStore changes a vehicle's speed after List returns it.
type speedingStore struct {
	*fleet.MemoryStore
	target string
	speed  float64
}

func (s *speedingStore) List(f fleet.Filter) []model.Vehicle {
	out := s.MemoryStore.List(f)
	s.MemoryStore.Update(s.target, model.VehiclePatch{Speed: &s.speed})
	return out
}

func TestTick_WalksFromCurrentRecord(t *testing.T) {
	base := seeded(t, vehicle("A", model.StatusActive, 40))
	store := &speedingStore{MemoryStore: base, target: "A", speed: 80}
	u := NewUpdater(store, &capturePublisher{}, Config{SpeedJitter: 5}, WithJitter(fixedJitter{frac: 1}))

	res := u.Tick(context.Background())
	require.Len(t, res.Updated, 1)
	assert.InDelta(t, 85, res.Updated[0].Speed, 1e-9)
}

type panicJitter struct{}

func (panicJitter) Uniform(float64, float64) float64 { panic("rng exploded") }

func TestTick_PanicIsContained(t *testing.T) {
	store := seeded(t, vehicle("A", model.StatusActive, 40))
	sink := &tickSink{}
	u := NewUpdater(store, &capturePublisher{}, Config{}, WithJitter(panicJitter{}), WithMetrics(sink))
	assert.NotPanics(t, func() { u.Tick(context.Background()) })
	assert.Len(t, sink.ticks, 1)
}

type memHistory struct {
	history.NopStore
	recs []history.TickRecord
}

func (m *memHistory) Append(_ context.Context, r history.TickRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func TestTick_RecordsHistory(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := seeded(t, vehicle("A", model.StatusActive, 40), vehicle("B", model.StatusActive, 20))
	h := &memHistory{}
	u := NewUpdater(store, &capturePublisher{}, Config{}, WithHistory(h), WithClock(func() time.Time { return now }))
	u.Tick(context.Background())
	require.Len(t, h.recs, 1)
	assert.Equal(t, now, h.recs[0].Timestamp)
	require.Len(t, h.recs[0].Updated, 2)
	assert.Equal(t, "A", h.recs[0].Updated[0].VehicleID)
}

type manualTicker struct {
	ch      chan time.Time
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped = true }

func TestRun_TicksUntilCancelled(t *testing.T) {
	store := seeded(t, vehicle("A", model.StatusActive, 40))
	pub := &capturePublisher{}
	mt := &manualTicker{ch: make(chan time.Time)}
	var gotInterval time.Duration
	u := NewUpdater(store, pub, Config{}, WithTicker(func(d time.Duration) Ticker {
		gotInterval = d
		return mt
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	mt.ch <- time.Now()
	mt.ch <- time.Now()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, DefaultInterval, gotInterval)
	assert.True(t, mt.stopped)
	assert.GreaterOrEqual(t, len(pub.ids()), 1)
}

func TestUniformJitterRange(t *testing.T) {
	j := NewUniformJitter(7)
	for i := 0; i < 1000; i++ {
		x := j.Uniform(-5, 5)
		assert.GreaterOrEqual(t, x, -5.0)
		assert.LessOrEqual(t, x, 5.0)
	}
	assert.Equal(t, 3.0, j.Uniform(3, 3))
}
