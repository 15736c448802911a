// Package feed exports the fleet as a GTFS-realtime VehiclePositions feed.
package feed

import (
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/driveinsight/fleet/api/httpx"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/model"
)

const gtfsRealtimeVersion = "2.0"

// kmhToMS converts the store's km/h speeds to the m/s GTFS-realtime uses.
const kmhToMS = 1 / 3.6

// BuildFeed returns a full-dataset FeedMessage with one VehiclePosition
// entity per vehicle. The corridor is carried as the trip's route id.
func BuildFeed(vs []model.Vehicle, now time.Time) *gtfs.FeedMessage {
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(vs)),
	}
	for _, v := range vs {
		vp := &gtfs.VehiclePosition{
			Vehicle: &gtfs.VehicleDescriptor{
				Id:    proto.String(v.ID),
				Label: proto.String(v.DriverName),
			},
			Trip: &gtfs.TripDescriptor{RouteId: proto.String(string(v.Corridor))},
			Position: &gtfs.Position{
				Latitude:  proto.Float32(float32(v.Latitude)),
				Longitude: proto.Float32(float32(v.Longitude)),
				Speed:     proto.Float32(float32(v.Speed * kmhToMS)),
			},
		}
		if !v.LastUpdate.IsZero() {
			vp.Timestamp = proto.Uint64(uint64(v.LastUpdate.Unix()))
		}
		switch v.Status {
		case model.StatusActive:
			vp.CurrentStatus = gtfs.VehiclePosition_IN_TRANSIT_TO.Enum()
		case model.StatusIdle:
			vp.CurrentStatus = gtfs.VehiclePosition_STOPPED_AT.Enum()
		}
		msg.Entity = append(msg.Entity, &gtfs.FeedEntity{Id: proto.String(v.ID), Vehicle: vp})
	}
	return msg
}

type Handler struct {
	store fleet.VehicleStore
	log   logger.Logger
	clock func() time.Time
}

func NewHandler(store fleet.VehicleStore, log logger.Logger) *Handler {
	return &Handler{store: store, log: logger.OrNop(log), clock: time.Now}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/feed/gtfsrt", h.serve)
}

// serve writes the binary protobuf feed, or protojson with ?format=json.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	msg := BuildFeed(h.store.List(fleet.Filter{}), h.clock())
	var (
		body []byte
		err  error
		ct   string
	)
	switch f := r.URL.Query().Get("format"); f {
	case "json":
		body, err = protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
		ct = "application/json"
	case "", "pb", "protobuf":
		body, err = proto.Marshal(msg)
		ct = "application/x-protobuf"
	default:
		httpx.WriteError(w, http.StatusBadRequest, "unsupported format", f)
		return
	}
	if err != nil {
		h.log.Errorf("encode gtfs-rt feed: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to encode feed", err.Error())
		return
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(body)
}
