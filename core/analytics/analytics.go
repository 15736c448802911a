// Package analytics derives dashboard aggregates from store snapshots.
package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/driveinsight/fleet/core/model"
)

// Summary is the headline block of the dashboard.
type Summary struct {
	TotalVehicles      int     `json:"totalVehicles"`
	ActiveVehicles     int     `json:"activeVehicles"`
	AvgSpeed           float64 `json:"avgSpeed"`
	TotalDistanceToday float64 `json:"totalDistanceToday"`
	ActiveCorridors    int     `json:"activeCorridors"`
}

type CorridorCount struct {
	Corridor model.Corridor `json:"corridor"`
	Count    int            `json:"count"`
}

type TypeCount struct {
	Type  model.VehicleType `json:"type"`
	Count int               `json:"count"`
}

type StatusCount struct {
	Status model.VehicleStatus `json:"status"`
	Count  int                 `json:"count"`
}

// Summarize computes the summary. Average speed covers every vehicle and is
// rounded to one decimal; distance sums the metrics dated on now's day.
func Summarize(vs []model.Vehicle, daily []model.DailyMetrics, now time.Time) Summary {
	s := Summary{TotalVehicles: len(vs)}
	corridors := map[model.Corridor]struct{}{}
	speeds := make([]float64, 0, len(vs))
	for _, v := range vs {
		if v.IsActive() {
			s.ActiveVehicles++
		}
		corridors[v.Corridor] = struct{}{}
		speeds = append(speeds, v.Speed)
	}
	s.ActiveCorridors = len(corridors)
	if len(speeds) > 0 {
		s.AvgSpeed = math.Round(stat.Mean(speeds, nil)*10) / 10
	}

	var dist []float64
	for _, m := range daily {
		if sameDay(m.Date, now) {
			dist = append(dist, m.TotalDistance)
		}
	}
	s.TotalDistanceToday = math.Round(floats.Sum(dist))
	return s
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Corridors counts vehicles per corridor, sorted by corridor name.
func Corridors(vs []model.Vehicle) []CorridorCount {
	counts := map[model.Corridor]int{}
	for _, v := range vs {
		counts[v.Corridor]++
	}
	out := make([]CorridorCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CorridorCount{Corridor: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Corridor < out[j].Corridor })
	return out
}

// VehicleTypes counts vehicles per type, sorted by type.
func VehicleTypes(vs []model.Vehicle) []TypeCount {
	counts := map[model.VehicleType]int{}
	for _, v := range vs {
		counts[v.VehicleType]++
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// FleetStatus counts vehicles per status, sorted by status.
func FleetStatus(vs []model.Vehicle) []StatusCount {
	counts := map[model.VehicleStatus]int{}
	for _, v := range vs {
		counts[v.Status]++
	}
	out := make([]StatusCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, StatusCount{Status: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}
