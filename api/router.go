// Package api assembles the HTTP surface: REST handlers, the WebSocket
// endpoint, health and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/driveinsight/fleet/api/analytics"
	"github.com/driveinsight/fleet/api/feed"
	apihistory "github.com/driveinsight/fleet/api/history"
	"github.com/driveinsight/fleet/api/httpx"
	"github.com/driveinsight/fleet/api/records"
	"github.com/driveinsight/fleet/api/vehicles"
	"github.com/driveinsight/fleet/api/ws"
	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/history"
	"github.com/driveinsight/fleet/core/logger"
	inframetrics "github.com/driveinsight/fleet/infra/metrics"
)

// Store is everything the handlers read and write.
type Store interface {
	fleet.VehicleStore
	records.Store
}

// Deps wires the router. History and Gatherer may be nil.
type Deps struct {
	Store          Store
	Hub            *broadcast.Hub
	History        history.Store
	Gatherer       prometheus.Gatherer
	APIToken       string
	AllowedOrigins []string
	WS             ws.Options
	Log            logger.Logger
}

type health struct {
	Status        string  `json:"status"`
	Vehicles      int     `json:"vehicles"`
	Subscribers   int     `json:"subscribers"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// NewRouter registers every route and returns the handler with middleware.
func NewRouter(d Deps) http.Handler {
	log := logger.OrNop(d.Log)
	if d.History == nil {
		d.History = history.NopStore{}
	}
	started := time.Now()

	mux := http.NewServeMux()
	vehicles.NewHandler(d.Store, d.Hub, log).Register(mux)
	analytics.NewHandler(d.Store, d.Store, log).Register(mux)
	records.NewHandler(d.Store, log).Register(mux)
	feed.NewHandler(d.Store, log).Register(mux)
	mux.Handle("GET /api/history/ticks", apihistory.NewTickHandler(d.History, log))

	wsOpts := d.WS
	if len(wsOpts.AllowedOrigins) == 0 {
		wsOpts.AllowedOrigins = d.AllowedOrigins
	}
	ws.NewHandler(d.Hub, wsOpts, log).Register(mux)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, health{
			Status:        "ok",
			Vehicles:      len(d.Store.List(fleet.Filter{})),
			Subscribers:   d.Hub.Len(),
			UptimeSeconds: time.Since(started).Seconds(),
		})
	})
	mux.Handle("GET /metrics", inframetrics.Handler(d.Gatherer))

	var h http.Handler = mux
	h = httpx.RequireToken(d.APIToken, h)
	h = httpx.WithCORS(d.AllowedOrigins, h)
	h = httpx.WithRecover(h)
	h = httpx.WithLogging(log, h)
	return httpx.WithRequestID(h)
}
