package rollup

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/history"
)

type memHistory struct {
	history.NopStore
	recs []history.TickRecord
	err  error
}

func (m *memHistory) Query(_ context.Context, q history.Query) ([]history.TickRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []history.TickRecord
	for _, r := range m.recs {
		if r.Timestamp.Before(q.Start) || r.Timestamp.After(q.End) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func tick(at time.Duration, ps ...history.Position) history.TickRecord {
	return history.TickRecord{Timestamp: day.Add(at), Updated: ps}
}

func fixture() *memHistory {
	return &memHistory{recs: []history.TickRecord{
		// one degree of latitude is about 111.19 km
		tick(2*time.Hour, history.Position{VehicleID: "A", Latitude: 1, Longitude: 0, Speed: 60}),
		tick(time.Hour,
			history.Position{VehicleID: "A", Latitude: 0, Longitude: 0, Speed: 40},
			history.Position{VehicleID: "B", Latitude: 5, Longitude: 5, Speed: 10}),
		tick(26*time.Hour, history.Position{VehicleID: "A", Latitude: 9, Longitude: 9, Speed: 99}),
	}}
}

func TestCompute(t *testing.T) {
	rows, err := Compute(context.Background(), fixture(), day.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "A", rows[0].VehicleID)
	assert.Equal(t, day, rows[0].Date)
	assert.InDelta(t, 111.19, rows[0].TotalDistance, 0.01)
	assert.Equal(t, 50.0, rows[0].AvgSpeed)

	assert.Equal(t, "B", rows[1].VehicleID)
	assert.Equal(t, 0.0, rows[1].TotalDistance)
	assert.Equal(t, 10.0, rows[1].AvgSpeed)
}

func TestCompute_QueryError(t *testing.T) {
	_, err := Compute(context.Background(), &memHistory{err: errors.New("disk")}, day)
	assert.Error(t, err)
}

func TestBackfill(t *testing.T) {
	store := fleet.NewMemoryStore(nil)
	n, err := Backfill(context.Background(), fixture(), store, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, store.VehicleDailyMetrics("A"), 2)

	_, err = Backfill(context.Background(), fixture(), store, day, day.Add(-time.Hour))
	assert.Error(t, err)
}

func TestScheduler(t *testing.T) {
	now := day.Add(26 * time.Hour)
	store := fleet.NewMemoryStore(nil)
	s := NewScheduler(fixture(), store, nil)
	s.now = func() time.Time { return now }

	assert.Equal(t, 22*time.Hour+time.Minute, s.next())

	fire := make(chan time.Time)
	var waited time.Duration
	s.after = func(d time.Duration) <-chan time.Time {
		waited = d
		return fire
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	fire <- now
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, 22*time.Hour+time.Minute, waited)
	// now-24h falls on the fixture day.
	assert.Len(t, store.DailyMetrics(), 2)
}

func TestRunOnce_ReportsErrors(t *testing.T) {
	store := fleet.NewMemoryStore(nil)
	s := NewScheduler(&memHistory{err: errors.New("disk")}, store, nil)
	assert.Equal(t, 0, s.RunOnce(context.Background(), day))
	assert.Empty(t, store.DailyMetrics())
}

func TestHaversineAntipodal(t *testing.T) {
	for _, p := range [][4]float64{
		{0, 0, 0, 180},
		{90, 0, -90, 0},
		{-19.8, 34.8, 19.8, -145.2},
		{45, 1e-13, -45, -180},
	} {
		d := haversineKm(p[0], p[1], p[2], p[3])
		assert.False(t, math.IsNaN(d), "%v", p)
		assert.InDelta(t, math.Pi*earthRadiusKm, d, 0.01, "%v", p)
	}
}
