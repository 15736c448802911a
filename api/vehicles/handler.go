// Package vehicles serves the vehicle CRUD endpoints under /api/vehicles.
package vehicles

import (
	"errors"
	"net/http"

	"github.com/driveinsight/fleet/api/httpx"
	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/model"
)

// Handler exposes the vehicle store over HTTP. Every successful mutation
// publishes one vehicle_update notification.
type Handler struct {
	store fleet.VehicleStore
	pub   broadcast.Publisher
	log   logger.Logger
}

func NewHandler(store fleet.VehicleStore, pub broadcast.Publisher, log logger.Logger) *Handler {
	return &Handler{store: store, pub: pub, log: logger.OrNop(log)}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/vehicles", h.list)
	mux.HandleFunc("POST /api/vehicles", h.create)
	mux.HandleFunc("GET /api/vehicles/{id}", h.get)
	mux.HandleFunc("PATCH /api/vehicles/{id}", h.patch)
	mux.HandleFunc("DELETE /api/vehicles/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := fleet.Filter{}
	if c := q.Get("corridor"); c != "" {
		f.Corridor = model.NormalizeCorridor(c)
		if !f.Corridor.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "invalid corridor", c)
			return
		}
	}
	if s := q.Get("status"); s != "" {
		f.Status = model.VehicleStatus(s)
		if !f.Status.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "invalid status", s)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, h.store.List(f))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, ok := h.store.Get(id)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "vehicle not found", id)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var v model.Vehicle
	if err := httpx.DecodeJSON(r, &v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid vehicle data", err.Error())
		return
	}
	out, err := h.store.Create(v)
	switch {
	case errors.Is(err, fleet.ErrExists):
		httpx.WriteError(w, http.StatusConflict, "vehicle already exists", v.ID)
		return
	case err != nil:
		httpx.WriteError(w, http.StatusBadRequest, "invalid vehicle data", err.Error())
		return
	}
	h.log.Infof("vehicle %s created", out.ID)
	h.pub.Publish(r.Context(), model.VehicleUpdated(out.ID))
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p model.VehiclePatch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid vehicle data", err.Error())
		return
	}
	if p.Empty() {
		httpx.WriteError(w, http.StatusBadRequest, "invalid vehicle data", "no fields to update")
		return
	}
	cur, ok := h.store.Get(id)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "vehicle not found", id)
		return
	}
	if err := p.Apply(cur).Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid vehicle data", err.Error())
		return
	}
	out, ok := h.store.Update(id, p)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "vehicle not found", id)
		return
	}
	h.pub.Publish(r.Context(), model.VehicleUpdated(id))
	httpx.WriteJSON(w, http.StatusOK, out)
}

// delete publishes too; receivers re-fetch and observe the 404.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.store.Delete(id) {
		httpx.WriteError(w, http.StatusNotFound, "vehicle not found", id)
		return
	}
	h.log.Infof("vehicle %s deleted", id)
	h.pub.Publish(r.Context(), model.VehicleUpdated(id))
	w.WriteHeader(http.StatusNoContent)
}
