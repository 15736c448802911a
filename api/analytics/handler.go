// Package analytics serves the dashboard aggregates and the chart page.
package analytics

import (
	"net/http"
	"time"

	"github.com/driveinsight/fleet/api/httpx"
	"github.com/driveinsight/fleet/core/analytics"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/logger"
)

type Handler struct {
	vehicles fleet.VehicleStore
	metrics  fleet.MetricsStore
	log      logger.Logger
	clock    func() time.Time
}

func NewHandler(vehicles fleet.VehicleStore, metrics fleet.MetricsStore, log logger.Logger) *Handler {
	return &Handler{vehicles: vehicles, metrics: metrics, log: logger.OrNop(log), clock: time.Now}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/analytics/summary", h.summary)
	mux.HandleFunc("GET /api/analytics/corridors", h.corridors)
	mux.HandleFunc("GET /api/analytics/vehicle-types", h.vehicleTypes)
	mux.HandleFunc("GET /api/analytics/fleet-status", h.fleetStatus)
	mux.HandleFunc("GET /dashboard/charts", h.charts)
}

func (h *Handler) summary(w http.ResponseWriter, _ *http.Request) {
	vs := h.vehicles.List(fleet.Filter{})
	httpx.WriteJSON(w, http.StatusOK, analytics.Summarize(vs, h.metrics.DailyMetrics(), h.clock()))
}

func (h *Handler) corridors(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, analytics.Corridors(h.vehicles.List(fleet.Filter{})))
}

func (h *Handler) vehicleTypes(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, analytics.VehicleTypes(h.vehicles.List(fleet.Filter{})))
}

func (h *Handler) fleetStatus(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, analytics.FleetStatus(h.vehicles.List(fleet.Filter{})))
}

func (h *Handler) charts(w http.ResponseWriter, _ *http.Request) {
	html, err := ChartsHTML(h.vehicles.List(fleet.Filter{}))
	if err != nil {
		h.log.Errorf("render charts: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to render charts", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}
