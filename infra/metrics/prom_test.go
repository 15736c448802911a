package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
)

func TestPromSink_RecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordTick(coremetrics.TickEvent{Updated: 3, Skipped: 1, Duration: 20 * time.Millisecond}))
	require.NoError(t, s.RecordTick(coremetrics.TickEvent{Updated: 2}))

	assert.Equal(t, 2.0, testutil.ToFloat64(s.ticks))
	assert.Equal(t, 5.0, testutil.ToFloat64(s.tickResults.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.tickResults.WithLabelValues("skipped")))
	assert.Equal(t, 1, testutil.CollectAndCount(s.tickLatency))
}

func TestPromSink_BroadcastAndAlerts(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordPublish(coremetrics.PublishEvent{Type: "vehicle_update", Delivered: 2, Dropped: 1}))
	require.NoError(t, s.RecordSubscribers(4))
	require.NoError(t, s.RecordAlert(model.Alert{Type: model.AlertSpeeding, Severity: model.SeverityHigh}))
	require.NoError(t, s.RecordIngest(coremetrics.IngestEvent{Accepted: false, Reason: "unknown_vehicle"}))
	require.NoError(t, s.RecordFleetSize(5))

	assert.Equal(t, 2.0, testutil.ToFloat64(s.published.WithLabelValues("vehicle_update", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.published.WithLabelValues("vehicle_update", "dropped")))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.subscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.alerts.WithLabelValues("speeding", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.ingest.WithLabelValues("false", "unknown_vehicle")))
	assert.Equal(t, 5.0, testutil.ToFloat64(s.fleet))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordTick(coremetrics.TickEvent{}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.ticks))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, s.RecordFleetSize(7))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "fleet_vehicles 7"))
}
