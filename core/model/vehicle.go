package model

import (
	"fmt"
	"time"
)

// Corridor is the named route region a vehicle operates on.
type Corridor string

const (
	CorridorBeira   Corridor = "Beira"
	CorridorNacala  Corridor = "Nacala"
	CorridorCentral Corridor = "Central (Dar es Salaam)"
	CorridorDurban  Corridor = "Durban"
)

// Corridors lists every known corridor in display order.
var Corridors = []Corridor{CorridorBeira, CorridorNacala, CorridorCentral, CorridorDurban}

// legacyCorridors maps the compass names used by older fixtures.
var legacyCorridors = map[string]Corridor{
	"North": CorridorBeira,
	"South": CorridorNacala,
	"East":  CorridorCentral,
	"West":  CorridorDurban,
}

// NormalizeCorridor resolves legacy compass names to their corridor.
// Unknown values are returned unchanged so Validate can reject them.
func NormalizeCorridor(s string) Corridor {
	if c, ok := legacyCorridors[s]; ok {
		return c
	}
	return Corridor(s)
}

// Valid reports whether c belongs to the closed corridor set.
func (c Corridor) Valid() bool {
	for _, k := range Corridors {
		if c == k {
			return true
		}
	}
	return false
}

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	StatusActive      VehicleStatus = "active"
	StatusIdle        VehicleStatus = "idle"
	StatusMaintenance VehicleStatus = "maintenance"
	StatusOffline     VehicleStatus = "offline"
)

// Valid reports whether s is a known status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case StatusActive, StatusIdle, StatusMaintenance, StatusOffline:
		return true
	}
	return false
}

// VehicleType classifies the vehicle body.
type VehicleType string

const (
	TypeTruck VehicleType = "truck"
	TypeVan   VehicleType = "van"
	TypeSedan VehicleType = "sedan"
)

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool {
	switch t {
	case TypeTruck, TypeVan, TypeSedan:
		return true
	}
	return false
}

// Vehicle is the tracked state of a fleet vehicle.
type Vehicle struct {
	ID          string        `json:"id" yaml:"id"`
	DriverName  string        `json:"driverName" yaml:"driver_name"`
	Corridor    Corridor      `json:"corridor" yaml:"corridor"`
	VehicleType VehicleType   `json:"vehicleType" yaml:"vehicle_type"`
	Speed       float64       `json:"speed" yaml:"speed"` // km/h, never negative
	Fuel        int           `json:"fuel" yaml:"fuel"`   // percentage 0..100
	Status      VehicleStatus `json:"status" yaml:"status"`
	Latitude    float64       `json:"latitude" yaml:"latitude"`
	Longitude   float64       `json:"longitude" yaml:"longitude"`
	LastUpdate  time.Time     `json:"lastUpdate" yaml:"-"`
}

// IsActive reports whether the position updater should move the vehicle.
func (v Vehicle) IsActive() bool { return v.Status == StatusActive }

// Validate checks that every field holds an acceptable value.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("id is required")
	}
	if v.DriverName == "" {
		return fmt.Errorf("driverName is required")
	}
	if !v.Corridor.Valid() {
		return fmt.Errorf("unknown corridor %q", v.Corridor)
	}
	if !v.VehicleType.Valid() {
		return fmt.Errorf("unknown vehicleType %q", v.VehicleType)
	}
	if !v.Status.Valid() {
		return fmt.Errorf("unknown status %q", v.Status)
	}
	if v.Speed < 0 {
		return fmt.Errorf("speed must not be negative")
	}
	if v.Fuel < 0 || v.Fuel > 100 {
		return fmt.Errorf("fuel must be within 0..100")
	}
	if v.Latitude < -90 || v.Latitude > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if v.Longitude < -180 || v.Longitude > 180 {
		return fmt.Errorf("longitude out of range")
	}
	return nil
}

// VehiclePatch carries a partial update. Nil fields are left untouched.
type VehiclePatch struct {
	DriverName  *string        `json:"driverName,omitempty"`
	Corridor    *Corridor      `json:"corridor,omitempty"`
	VehicleType *VehicleType   `json:"vehicleType,omitempty"`
	Speed       *float64       `json:"speed,omitempty"`
	Fuel        *int           `json:"fuel,omitempty"`
	Status      *VehicleStatus `json:"status,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p VehiclePatch) Empty() bool {
	return p.DriverName == nil && p.Corridor == nil && p.VehicleType == nil &&
		p.Speed == nil && p.Fuel == nil && p.Status == nil &&
		p.Latitude == nil && p.Longitude == nil
}

// Apply returns v with the provided fields merged in.
func (p VehiclePatch) Apply(v Vehicle) Vehicle {
	if p.DriverName != nil {
		v.DriverName = *p.DriverName
	}
	if p.Corridor != nil {
		v.Corridor = NormalizeCorridor(string(*p.Corridor))
	}
	if p.VehicleType != nil {
		v.VehicleType = *p.VehicleType
	}
	if p.Speed != nil {
		v.Speed = *p.Speed
	}
	if p.Fuel != nil {
		v.Fuel = *p.Fuel
	}
	if p.Status != nil {
		v.Status = *p.Status
	}
	if p.Latitude != nil {
		v.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		v.Longitude = *p.Longitude
	}
	return v
}

// PositionPatch builds the patch written by the position updater.
func PositionPatch(lat, lon, speed float64) VehiclePatch {
	return VehiclePatch{Latitude: &lat, Longitude: &lon, Speed: &speed}
}
