package model

import "testing"

func validVehicle() Vehicle {
	return Vehicle{
		ID:          "V-100",
		DriverName:  "Ana Lopes",
		Corridor:    CorridorBeira,
		VehicleType: TypeTruck,
		Speed:       40,
		Fuel:        80,
		Status:      StatusActive,
		Latitude:    -19.83,
		Longitude:   34.84,
	}
}

func TestVehicleValidate(t *testing.T) {
	if err := validVehicle().Validate(); err != nil {
		t.Fatalf("valid vehicle rejected: %v", err)
	}
	cases := map[string]func(*Vehicle){
		"id":        func(v *Vehicle) { v.ID = "" },
		"driver":    func(v *Vehicle) { v.DriverName = "" },
		"corridor":  func(v *Vehicle) { v.Corridor = "Nowhere" },
		"type":      func(v *Vehicle) { v.VehicleType = "bike" },
		"status":    func(v *Vehicle) { v.Status = "parked" },
		"speed":     func(v *Vehicle) { v.Speed = -1 },
		"fuel":      func(v *Vehicle) { v.Fuel = 101 },
		"latitude":  func(v *Vehicle) { v.Latitude = 91 },
		"longitude": func(v *Vehicle) { v.Longitude = -181 },
	}
	for name, mutate := range cases {
		v := validVehicle()
		mutate(&v)
		if err := v.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestNormalizeCorridor(t *testing.T) {
	if c := NormalizeCorridor("North"); c != CorridorBeira {
		t.Fatalf("expected Beira got %s", c)
	}
	if c := NormalizeCorridor("West"); c != CorridorDurban {
		t.Fatalf("expected Durban got %s", c)
	}
	if c := NormalizeCorridor("Nacala"); c != CorridorNacala {
		t.Fatalf("expected passthrough got %s", c)
	}
	if NormalizeCorridor("Atlantis").Valid() {
		t.Fatalf("unknown corridor reported valid")
	}
}

func TestVehiclePatchApply(t *testing.T) {
	v := validVehicle()
	speed := 0.0
	status := StatusIdle
	legacy := Corridor("East")
	p := VehiclePatch{Speed: &speed, Status: &status, Corridor: &legacy}
	out := p.Apply(v)
	if out.Speed != 0 || out.Status != StatusIdle {
		t.Fatalf("patch not applied: %#v", out)
	}
	if out.Corridor != CorridorCentral {
		t.Fatalf("legacy corridor not normalised: %s", out.Corridor)
	}
	if out.DriverName != v.DriverName || out.Fuel != v.Fuel {
		t.Fatalf("untouched fields changed: %#v", out)
	}
	if p.Empty() {
		t.Fatalf("patch reported empty")
	}
	if !(VehiclePatch{}).Empty() {
		t.Fatalf("zero patch not empty")
	}
}

func TestPositionPatch(t *testing.T) {
	p := PositionPatch(1, 2, 3)
	if *p.Latitude != 1 || *p.Longitude != 2 || *p.Speed != 3 {
		t.Fatalf("unexpected patch %#v", p)
	}
	if p.Status != nil || p.Fuel != nil {
		t.Fatalf("position patch touches other fields")
	}
}

func TestVehicleUpdatedNotification(t *testing.T) {
	n := VehicleUpdated("V-001")
	if n.Type != "vehicle_update" || n.VehicleID != "V-001" {
		t.Fatalf("unexpected notification %#v", n)
	}
}
