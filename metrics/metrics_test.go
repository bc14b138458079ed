package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestRecordTick(t *testing.T) {
	r := NewRegistry()
	r.RecordTick(0.5, 2*time.Millisecond)
	r.RecordTick(0.25, time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, r.Ticks))
	assert.Equal(t, 0.25, gaugeValue(t, r.Alpha))

	var m dto.Metric
	require.NoError(t, r.TickDuration.Write(&m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
}

func TestRecordRebuildAndLoad(t *testing.T) {
	r := NewRegistry()
	r.RecordRebuild(12, 30)
	r.RecordLoad(nil)
	r.RecordLoad(errors.New("boom"))
	r.RecordLoad(errors.New("boom"))

	assert.Equal(t, 1.0, counterValue(t, r.Rebuilds))
	assert.Equal(t, 12.0, gaugeValue(t, r.GraphNodes))
	assert.Equal(t, 30.0, gaugeValue(t, r.GraphEdges))
	assert.Equal(t, 1.0, counterValue(t, r.DatasetLoads.WithLabelValues(LoadOK)))
	assert.Equal(t, 2.0, counterValue(t, r.DatasetLoads.WithLabelValues(LoadFailed)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/graph", 200, time.Millisecond)
	r.StreamClients.Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `topicweb_http_requests_total{method="GET",route="/api/graph",status="200"} 1`)
	assert.Contains(t, string(body), "topicweb_stream_clients 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.Rebuilds.Inc()
	assert.Equal(t, 0.0, counterValue(t, b.Rebuilds))
}
