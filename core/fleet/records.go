package fleet

import (
	"sort"

	"github.com/driveinsight/fleet/core/model"
)

// RouteStore holds completed trips and their sampled paths.
type RouteStore interface {
	ListRoutes() []model.Route
	VehicleRoutes(vehicleID string) []model.Route
	CreateRoute(r model.Route) model.Route
	RoutePoints(routeID string) []model.RoutePoint
	AddRoutePoints(routeID string, pts []model.RoutePoint) bool
}

// AlertStore holds operator alerts.
type AlertStore interface {
	ActiveAlerts() []model.Alert
	CreateAlert(a model.Alert) model.Alert
	RaiseAlert(a model.Alert) (model.Alert, bool)
	UpdateAlert(id string, p model.AlertPatch) (model.Alert, bool)
}

// MetricsStore holds per-day driving aggregates.
type MetricsStore interface {
	DailyMetrics() []model.DailyMetrics
	VehicleDailyMetrics(vehicleID string) []model.DailyMetrics
	CreateDailyMetrics(m model.DailyMetrics) model.DailyMetrics
}

// ListRoutes returns every route, newest first.
func (s *MemoryStore) ListRoutes() []model.Route {
	return s.routesWhere(func(model.Route) bool { return true })
}

func (s *MemoryStore) VehicleRoutes(vehicleID string) []model.Route {
	return s.routesWhere(func(r model.Route) bool { return r.VehicleID == vehicleID })
}

func (s *MemoryStore) routesWhere(keep func(model.Route) bool) []model.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Route, 0, len(s.routes))
	for _, r := range s.routes {
		if keep(r) {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Date.Equal(res[j].Date) {
			return res[i].ID < res[j].ID
		}
		return res[i].Date.After(res[j].Date)
	})
	return res
}

// CreateRoute assigns an id and, when unset, today's date.
func (s *MemoryStore) CreateRoute(r model.Route) model.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = newID()
	if r.Date.IsZero() {
		r.Date = s.clock()
	}
	s.routes[r.ID] = r
	return r
}

// RoutePoints returns the path of a route ordered by sequence.
func (s *MemoryStore) RoutePoints(routeID string) []model.RoutePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := append(make([]model.RoutePoint, 0, len(s.points[routeID])), s.points[routeID]...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Sequence < pts[j].Sequence })
	return pts
}

// AddRoutePoints appends points to an existing route. It reports false when
// the route is unknown.
func (s *MemoryStore) AddRoutePoints(routeID string, pts []model.RoutePoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[routeID]; !ok {
		return false
	}
	for _, p := range pts {
		p.RouteID = routeID
		s.points[routeID] = append(s.points[routeID], p)
	}
	return true
}

// ActiveAlerts returns active alerts, newest first.
func (s *MemoryStore) ActiveAlerts() []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if a.IsActive {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

// CreateAlert stores a as a new active alert.
func (s *MemoryStore) CreateAlert(a model.Alert) model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAlert(a)
}

// RaiseAlert creates a only if no active alert of the same type exists for
// the vehicle. The existing alert is returned otherwise.
func (s *MemoryStore) RaiseAlert(a model.Alert) (model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.alerts {
		if cur.IsActive && cur.VehicleID == a.VehicleID && cur.Type == a.Type {
			return cur, false
		}
	}
	return s.insertAlert(a), true
}

func (s *MemoryStore) insertAlert(a model.Alert) model.Alert {
	a.ID = newID()
	a.IsActive = true
	a.CreatedAt = s.clock()
	s.alerts[a.ID] = a
	return a
}

func (s *MemoryStore) UpdateAlert(id string, p model.AlertPatch) (model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return model.Alert{}, false
	}
	if p.Message != nil {
		a.Message = *p.Message
	}
	if p.Severity != nil {
		a.Severity = *p.Severity
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	s.alerts[id] = a
	return a, true
}

// DailyMetrics returns every row, newest day first.
func (s *MemoryStore) DailyMetrics() []model.DailyMetrics {
	return s.metricsWhere(func(model.DailyMetrics) bool { return true })
}

func (s *MemoryStore) VehicleDailyMetrics(vehicleID string) []model.DailyMetrics {
	return s.metricsWhere(func(m model.DailyMetrics) bool { return m.VehicleID == vehicleID })
}

func (s *MemoryStore) metricsWhere(keep func(model.DailyMetrics) bool) []model.DailyMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.DailyMetrics, 0, len(s.metrics))
	for _, m := range s.metrics {
		if keep(m) {
			res = append(res, m)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Date.Equal(res[j].Date) {
			return res[i].VehicleID < res[j].VehicleID
		}
		return res[i].Date.After(res[j].Date)
	})
	return res
}

func (s *MemoryStore) CreateDailyMetrics(m model.DailyMetrics) model.DailyMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = newID()
	if m.Date.IsZero() {
		m.Date = s.clock()
	}
	s.metrics[m.ID] = m
	return m
}
