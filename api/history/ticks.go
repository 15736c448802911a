// Package history serves the updater tick log.
package history

import (
	"net/http"
	"strconv"
	"time"

	"github.com/driveinsight/fleet/api/httpx"
	"github.com/driveinsight/fleet/core/history"
	"github.com/driveinsight/fleet/core/logger"
)

// DefaultLimit caps responses when no limit is given.
const DefaultLimit = 500

// NewTickHandler exposes recorded ticks via
// GET /api/history/ticks?start=&end=&vehicle_id=&limit=.
// start and end are RFC3339 timestamps.
func NewTickHandler(store history.Store, log logger.Logger) http.Handler {
	log = logger.OrNop(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid query", err.Error())
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			log.Errorf("history query: %v", err)
			httpx.WriteError(w, http.StatusInternalServerError, "history query failed", err.Error())
			return
		}
		if records == nil {
			records = []history.TickRecord{}
		}
		httpx.WriteJSON(w, http.StatusOK, records)
	})
}

func parseQuery(r *http.Request) (history.Query, error) {
	v := r.URL.Query()
	q := history.Query{VehicleID: v.Get("vehicle_id"), Limit: DefaultLimit}
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.End = t
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return q, strconv.ErrSyntax
		}
		q.Limit = n
	}
	return q, nil
}
