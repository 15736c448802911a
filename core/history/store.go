package history

import (
	"context"
	"time"
)

// Position is the state written for one vehicle during a tick.
type Position struct {
	VehicleID string  `json:"vehicle_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
}

// TickRecord captures one run of the position updater.
type TickRecord struct {
	Timestamp  time.Time  `json:"timestamp"`
	DurationMS float64    `json:"duration_ms"`
	Updated    []Position `json:"updated"`
	Skipped    []string   `json:"skipped,omitempty"`
}

// Involves reports whether the tick touched or skipped vehicleID.
func (r TickRecord) Involves(vehicleID string) bool {
	for _, p := range r.Updated {
		if p.VehicleID == vehicleID {
			return true
		}
	}
	for _, id := range r.Skipped {
		if id == vehicleID {
			return true
		}
	}
	return false
}

// Query filters stored ticks. Zero values match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	VehicleID string
	Limit     int
}

func (q Query) match(r TickRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.VehicleID != "" && !r.Involves(q.VehicleID) {
		return false
	}
	return true
}

// Store persists tick records.
type Store interface {
	Append(ctx context.Context, rec TickRecord) error
	Query(ctx context.Context, q Query) ([]TickRecord, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, TickRecord) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]TickRecord, error) { return nil, nil }
func (NopStore) Close() error                                       { return nil }
