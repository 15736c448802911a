package feed

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/model"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) *http.ServeMux {
	t.Helper()
	store := fleet.NewMemoryStore(func() time.Time { return now })
	require.NoError(t, fleet.Populate(store, fleet.DemoVehicles()))
	h := NewHandler(store, nil)
	h.clock = func() time.Time { return now }
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestBuildFeed(t *testing.T) {
	vs := []model.Vehicle{
		{ID: "V-001", DriverName: "John", Corridor: model.CorridorBeira, Speed: 36, Status: model.StatusActive, Latitude: -19.8, Longitude: 34.8, LastUpdate: now},
		{ID: "V-005", DriverName: "Rob", Corridor: model.CorridorDurban, Status: model.StatusMaintenance},
	}
	msg := BuildFeed(vs, now)
	assert.Equal(t, "2.0", msg.GetHeader().GetGtfsRealtimeVersion())
	assert.Equal(t, gtfs.FeedHeader_FULL_DATASET, msg.GetHeader().GetIncrementality())
	assert.Equal(t, uint64(now.Unix()), msg.GetHeader().GetTimestamp())
	require.Len(t, msg.GetEntity(), 2)

	first := msg.GetEntity()[0].GetVehicle()
	assert.Equal(t, "V-001", first.GetVehicle().GetId())
	assert.Equal(t, "Beira", first.GetTrip().GetRouteId())
	assert.InDelta(t, -19.8, first.GetPosition().GetLatitude(), 1e-4)
	assert.InDelta(t, 10.0, first.GetPosition().GetSpeed(), 1e-4)
	assert.Equal(t, gtfs.VehiclePosition_IN_TRANSIT_TO, first.GetCurrentStatus())
	assert.Equal(t, uint64(now.Unix()), first.GetTimestamp())

	second := msg.GetEntity()[1].GetVehicle()
	assert.Nil(t, second.CurrentStatus)
	assert.Nil(t, second.Timestamp)
}

func TestServeProtobuf(t *testing.T) {
	mux := setup(t)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/feed/gtfsrt", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/x-protobuf", rr.Header().Get("Content-Type"))

	var msg gtfs.FeedMessage
	require.NoError(t, proto.Unmarshal(rr.Body.Bytes(), &msg))
	require.Len(t, msg.GetEntity(), 5)
	assert.Equal(t, "V-001", msg.GetEntity()[0].GetId())
}

func TestServeJSON(t *testing.T) {
	mux := setup(t)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/feed/gtfsrt?format=json", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var msg gtfs.FeedMessage
	require.NoError(t, protojson.Unmarshal(rr.Body.Bytes(), &msg))
	assert.Len(t, msg.GetEntity(), 5)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/feed/gtfsrt?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
