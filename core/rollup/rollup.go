package rollup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/driveinsight/fleet/core/history"
	"github.com/driveinsight/fleet/core/model"
)

const earthRadiusKm = 6371.0

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Compute aggregates the ticks recorded during day into one row per vehicle
// that moved. Distance sums the great-circle legs between consecutive
// samples; AvgSpeed is the mean sampled speed. Ticks carry no fuel reading
// so FuelEfficiency stays zero.
func Compute(ctx context.Context, hist history.Store, day time.Time) ([]model.DailyMetrics, error) {
	start := Day(day)
	ticks, err := hist.Query(ctx, history.Query{Start: start, End: start.Add(24*time.Hour - time.Nanosecond)})
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp.Before(ticks[j].Timestamp) })

	type acc struct {
		last     history.Position
		distance float64
		speedSum float64
		samples  int
	}
	per := map[string]*acc{}
	for _, t := range ticks {
		for _, p := range t.Updated {
			a, ok := per[p.VehicleID]
			if !ok {
				a = &acc{}
				per[p.VehicleID] = a
			} else {
				a.distance += haversineKm(a.last.Latitude, a.last.Longitude, p.Latitude, p.Longitude)
			}
			a.last = p
			a.speedSum += p.Speed
			a.samples++
		}
	}

	out := make([]model.DailyMetrics, 0, len(per))
	for id, a := range per {
		out = append(out, model.DailyMetrics{
			VehicleID:     id,
			Date:          start,
			TotalDistance: round2(a.distance),
			AvgSpeed:      round2(a.speedSum / float64(a.samples)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

// Sink receives computed rows. fleet.MemoryStore satisfies it.
type Sink interface {
	CreateDailyMetrics(m model.DailyMetrics) model.DailyMetrics
}

// Backfill computes and stores every day in [from, to].
func Backfill(ctx context.Context, hist history.Store, sink Sink, from, to time.Time) (int, error) {
	if to.Before(from) {
		return 0, errors.New("rollup: end before start")
	}
	n := 0
	for d := Day(from); !d.After(Day(to)); d = d.Add(24 * time.Hour) {
		rows, err := Compute(ctx, hist, d)
		if err != nil {
			return n, err
		}
		for _, r := range rows {
			sink.CreateDailyMetrics(r)
			n++
		}
	}
	return n, nil
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a just past 1 for antipodal points.
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(1, a)))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
