package model

import (
	"fmt"
	"time"
)

// AlertType names the condition that raised an alert.
type AlertType string

const (
	AlertLowFuel     AlertType = "low_fuel"
	AlertMaintenance AlertType = "maintenance"
	AlertSpeeding    AlertType = "speeding"
	AlertOffline     AlertType = "offline"
)

// Severity ranks how urgent an alert is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Route is a completed trip of a vehicle.
type Route struct {
	ID            string    `json:"id"`
	VehicleID     string    `json:"vehicleId"`
	StartLocation string    `json:"startLocation"`
	EndLocation   string    `json:"endLocation"`
	Distance      float64   `json:"distance"` // km
	Duration      int       `json:"duration"` // minutes
	AvgSpeed      float64   `json:"avgSpeed"`
	Stops         int       `json:"stops"`
	Date          time.Time `json:"date"`
}

// RoutePoint is one sample of a route path. Sequence preserves path order.
type RoutePoint struct {
	RouteID   string  `json:"routeId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Sequence  int     `json:"sequence"`
}

// Alert is an operator-facing warning attached to a vehicle.
type Alert struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicleId"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// AlertPatch updates an existing alert.
type AlertPatch struct {
	Message  *string   `json:"message,omitempty"`
	Severity *Severity `json:"severity,omitempty"`
	IsActive *bool     `json:"isActive,omitempty"`
}

// DailyMetrics aggregates one day of driving for a vehicle.
type DailyMetrics struct {
	ID             string    `json:"id"`
	VehicleID      string    `json:"vehicleId"`
	Date           time.Time `json:"date"`
	TotalDistance  float64   `json:"totalDistance"`
	FuelEfficiency float64   `json:"fuelEfficiency"` // km/L
	AvgSpeed       float64   `json:"avgSpeed"`
}

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertLowFuel, AlertMaintenance, AlertSpeeding, AlertOffline:
		return true
	}
	return false
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func (a Alert) Validate() error {
	if a.VehicleID == "" {
		return fmt.Errorf("vehicleId is required")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("unknown alert type %q", a.Type)
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", a.Severity)
	}
	return nil
}

func (r Route) Validate() error {
	if r.VehicleID == "" {
		return fmt.Errorf("vehicleId is required")
	}
	if r.Distance < 0 || r.Duration < 0 || r.AvgSpeed < 0 || r.Stops < 0 {
		return fmt.Errorf("route figures must not be negative")
	}
	return nil
}

func (m DailyMetrics) Validate() error {
	if m.VehicleID == "" {
		return fmt.Errorf("vehicleId is required")
	}
	if m.TotalDistance < 0 || m.FuelEfficiency < 0 || m.AvgSpeed < 0 {
		return fmt.Errorf("metrics must not be negative")
	}
	return nil
}
