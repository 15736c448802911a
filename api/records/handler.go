// Package records serves alerts, routes and daily metrics.
package records

import (
	"net/http"

	"github.com/driveinsight/fleet/api/httpx"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/model"
)

// Store is the record surface the handler needs.
type Store interface {
	fleet.RouteStore
	fleet.AlertStore
	fleet.MetricsStore
}

type Handler struct {
	store Store
	log   logger.Logger
}

func NewHandler(store Store, log logger.Logger) *Handler {
	return &Handler{store: store, log: logger.OrNop(log)}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/alerts", h.listAlerts)
	mux.HandleFunc("POST /api/alerts", h.createAlert)
	mux.HandleFunc("PATCH /api/alerts/{id}", h.patchAlert)

	mux.HandleFunc("GET /api/routes", h.listRoutes)
	mux.HandleFunc("POST /api/routes", h.createRoute)
	// /vehicle/{vehicleId} and /{id}/points overlap as patterns, so one
	// handler splits them.
	mux.HandleFunc("GET /api/routes/{id}/{rest}", h.routeSub)
	mux.HandleFunc("POST /api/routes/{id}/points", h.addPoints)

	mux.HandleFunc("GET /api/metrics/daily", h.listMetrics)
	mux.HandleFunc("POST /api/metrics/daily", h.createMetrics)
	mux.HandleFunc("GET /api/metrics/daily/vehicle/{vehicleId}", h.vehicleMetrics)
}

func (h *Handler) listAlerts(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.store.ActiveAlerts())
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var a model.Alert
	if err := httpx.DecodeJSON(r, &a); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid alert data", err.Error())
		return
	}
	if err := a.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid alert data", err.Error())
		return
	}
	out := h.store.CreateAlert(a)
	h.log.Infof("alert %s (%s) created for %s", out.ID, out.Type, out.VehicleID)
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) patchAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p model.AlertPatch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid alert data", err.Error())
		return
	}
	if p.Severity != nil && !p.Severity.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "invalid alert data", "unknown severity "+string(*p.Severity))
		return
	}
	out, ok := h.store.UpdateAlert(id, p)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "alert not found", id)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) listRoutes(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.store.ListRoutes())
}

func (h *Handler) createRoute(w http.ResponseWriter, r *http.Request) {
	var rt model.Route
	if err := httpx.DecodeJSON(r, &rt); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid route data", err.Error())
		return
	}
	if err := rt.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid route data", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.store.CreateRoute(rt))
}

func (h *Handler) routeSub(w http.ResponseWriter, r *http.Request) {
	id, rest := r.PathValue("id"), r.PathValue("rest")
	switch {
	case id == "vehicle":
		httpx.WriteJSON(w, http.StatusOK, h.store.VehicleRoutes(rest))
	case rest == "points":
		httpx.WriteJSON(w, http.StatusOK, h.store.RoutePoints(id))
	default:
		httpx.WriteError(w, http.StatusNotFound, "not found", r.URL.Path)
	}
}

func (h *Handler) addPoints(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var pts []model.RoutePoint
	if err := httpx.DecodeJSON(r, &pts); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid route points", err.Error())
		return
	}
	for _, p := range pts {
		if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid route points", "coordinates out of range")
			return
		}
	}
	if !h.store.AddRoutePoints(id, pts) {
		httpx.WriteError(w, http.StatusNotFound, "route not found", id)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.store.RoutePoints(id))
}

func (h *Handler) listMetrics(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.store.DailyMetrics())
}

func (h *Handler) vehicleMetrics(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.store.VehicleDailyMetrics(r.PathValue("vehicleId")))
}

func (h *Handler) createMetrics(w http.ResponseWriter, r *http.Request) {
	var m model.DailyMetrics
	if err := httpx.DecodeJSON(r, &m); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid metrics data", err.Error())
		return
	}
	if err := m.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid metrics data", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.store.CreateDailyMetrics(m))
}
