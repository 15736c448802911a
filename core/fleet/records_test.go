package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveinsight/fleet/core/model"
)

func TestRoutesAndPoints(t *testing.T) {
	s := NewMemoryStore(nil)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	old := s.CreateRoute(model.Route{VehicleID: "V-001", StartLocation: "Beira", EndLocation: "Chimoio", Distance: 200, Date: day})
	recent := s.CreateRoute(model.Route{VehicleID: "V-001", StartLocation: "Chimoio", EndLocation: "Harare", Date: day.Add(24 * time.Hour)})
	s.CreateRoute(model.Route{VehicleID: "V-002"})

	require.NotEmpty(t, old.ID)
	assert.Len(t, s.ListRoutes(), 3)
	mine := s.VehicleRoutes("V-001")
	require.Len(t, mine, 2)
	assert.Equal(t, recent.ID, mine[0].ID)

	ok := s.AddRoutePoints(old.ID, []model.RoutePoint{
		{Latitude: 2, Longitude: 2, Sequence: 2},
		{Latitude: 1, Longitude: 1, Sequence: 1},
	})
	require.True(t, ok)
	pts := s.RoutePoints(old.ID)
	require.Len(t, pts, 2)
	assert.Equal(t, 1, pts[0].Sequence)
	assert.Equal(t, old.ID, pts[0].RouteID)

	assert.False(t, s.AddRoutePoints("missing", []model.RoutePoint{{Sequence: 1}}))
	assert.Empty(t, s.RoutePoints("missing"))
}

func TestAlerts(t *testing.T) {
	s := NewMemoryStore(nil)
	a := s.CreateAlert(model.Alert{VehicleID: "V-001", Type: model.AlertSpeeding, Severity: model.SeverityHigh})
	assert.True(t, a.IsActive)
	assert.False(t, a.CreatedAt.IsZero())

	_, created := s.RaiseAlert(model.Alert{VehicleID: "V-001", Type: model.AlertSpeeding, Severity: model.SeverityHigh})
	assert.False(t, created)
	_, created = s.RaiseAlert(model.Alert{VehicleID: "V-001", Type: model.AlertLowFuel, Severity: model.SeverityHigh})
	assert.True(t, created)
	assert.Len(t, s.ActiveAlerts(), 2)

	inactive := false
	out, ok := s.UpdateAlert(a.ID, model.AlertPatch{IsActive: &inactive})
	require.True(t, ok)
	assert.False(t, out.IsActive)
	assert.Len(t, s.ActiveAlerts(), 1)

	_, created = s.RaiseAlert(model.Alert{VehicleID: "V-001", Type: model.AlertSpeeding, Severity: model.SeverityHigh})
	assert.True(t, created)

	_, ok = s.UpdateAlert("missing", model.AlertPatch{IsActive: &inactive})
	assert.False(t, ok)
}

func TestDailyMetrics(t *testing.T) {
	now := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(fixedClock(now))
	s.CreateDailyMetrics(model.DailyMetrics{VehicleID: "V-001", TotalDistance: 10, Date: now.Add(-24 * time.Hour)})
	m := s.CreateDailyMetrics(model.DailyMetrics{VehicleID: "V-001", TotalDistance: 20})
	assert.Equal(t, now, m.Date)
	rows := s.VehicleDailyMetrics("V-001")
	require.Len(t, rows, 2)
	assert.Equal(t, 20.0, rows[0].TotalDistance)
	assert.Empty(t, s.VehicleDailyMetrics("V-009"))
}
