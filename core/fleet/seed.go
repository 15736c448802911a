package fleet

import (
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/driveinsight/fleet/core/model"
)

// DemoVehicles is the fleet the dashboard starts with.
func DemoVehicles() []model.Vehicle {
	return []model.Vehicle{
		{ID: "V-001", DriverName: "John Smith", Corridor: model.CorridorBeira, VehicleType: model.TypeTruck,
			Speed: 45, Fuel: 78, Status: model.StatusActive, Latitude: 40.7589, Longitude: -73.9851},
		{ID: "V-002", DriverName: "Sarah Johnson", Corridor: model.CorridorNacala, VehicleType: model.TypeVan,
			Speed: 41, Fuel: 45, Status: model.StatusActive, Latitude: 40.7282, Longitude: -74.0776},
		{ID: "V-003", DriverName: "Mike Davis", Corridor: model.CorridorCentral, VehicleType: model.TypeTruck,
			Speed: 0, Fuel: 92, Status: model.StatusIdle, Latitude: 40.7614, Longitude: -73.9776},
		{ID: "V-004", DriverName: "Lisa Chen", Corridor: model.CorridorDurban, VehicleType: model.TypeSedan,
			Speed: 52, Fuel: 67, Status: model.StatusActive, Latitude: 40.7505, Longitude: -73.9934},
		{ID: "V-005", DriverName: "Robert Wilson", Corridor: model.CorridorBeira, VehicleType: model.TypeTruck,
			Speed: 0, Fuel: 85, Status: model.StatusMaintenance, Latitude: 40.7831, Longitude: -73.9712},
	}
}

// Seed loads the demo fleet together with its alerts and daily metrics.
func Seed(s *MemoryStore) error {
	if err := Populate(s, DemoVehicles()); err != nil {
		return err
	}
	s.CreateAlert(model.Alert{VehicleID: "V-002", Type: model.AlertLowFuel,
		Message: "V-002 - 15% remaining", Severity: model.SeverityHigh})
	s.CreateAlert(model.Alert{VehicleID: "V-005", Type: model.AlertMaintenance,
		Message: "V-005 - Service required", Severity: model.SeverityMedium})
	s.CreateDailyMetrics(model.DailyMetrics{VehicleID: "V-001", TotalDistance: 147, FuelEfficiency: 16.8, AvgSpeed: 43})
	s.CreateDailyMetrics(model.DailyMetrics{VehicleID: "V-002", TotalDistance: 89, FuelEfficiency: 15.2, AvgSpeed: 39})
	return nil
}

// Populate creates every vehicle in vs, stopping at the first failure.
func Populate(s VehicleStore, vs []model.Vehicle) error {
	for _, v := range vs {
		if _, err := s.Create(v); err != nil {
			return fmt.Errorf("seed %s: %w", v.ID, err)
		}
	}
	return nil
}

// GenerateFleet creates size synthetic vehicles with IDs veh0001..vehNNNN
// spread over every corridor. Roughly two thirds start active.
func GenerateFleet(size int, rng *rand.Rand) []model.Vehicle {
	if size <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	types := []model.VehicleType{model.TypeTruck, model.TypeVan, model.TypeSedan}
	vs := make([]model.Vehicle, size)
	for i := range vs {
		status := model.StatusActive
		speed := 30 + rng.Float64()*50
		switch r := rng.Float64(); {
		case r > 0.9:
			status, speed = model.StatusMaintenance, 0
		case r > 0.66:
			status, speed = model.StatusIdle, 0
		}
		vs[i] = model.Vehicle{
			ID:          fmt.Sprintf("veh%04d", i+1),
			DriverName:  fmt.Sprintf("Driver %d", i+1),
			Corridor:    model.Corridors[i%len(model.Corridors)],
			VehicleType: types[rng.IntN(len(types))],
			Speed:       speed,
			Fuel:        10 + rng.IntN(91),
			Status:      status,
			Latitude:    -26 + rng.Float64()*20,
			Longitude:   28 + rng.Float64()*12,
		}
	}
	return vs
}

type fixture struct {
	Vehicles []model.Vehicle `yaml:"vehicles"`
}

// LoadFixture reads a YAML list of vehicles. Legacy corridor names are
// accepted and normalised.
func LoadFixture(path string) ([]model.Vehicle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i := range f.Vehicles {
		f.Vehicles[i].Corridor = model.NormalizeCorridor(string(f.Vehicles[i].Corridor))
	}
	return f.Vehicles, nil
}
