package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "stereo"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounter_Idempotent(t *testing.T) {
	c := newTestCollector(t)
	first := c.RegisterCounter("events_total", "events", "tool")
	second := c.RegisterCounter("events_total", "events", "tool")
	assert.NotNil(t, first)
	assert.NotNil(t, second)

	first.WithLabelValues("bond").Inc()
	second.WithLabelValues("bond").Add(2)
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("resolve_total", "resolve requests", "outcome").
		WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "stereo_resolve_total")
}

func TestNewAppMetrics_RegistersAll(t *testing.T) {
	m := NewAppMetrics(newTestCollector(t))
	require.NotNil(t, m)
	assert.NotNil(t, m.EditorEventsTotal)
	assert.NotNil(t, m.FallbackTotal)
	assert.NotNil(t, m.StaleDiscardsTotal)

	// Helpers must not panic.
	RecordHTTPRequest(m, "POST", "/api/v1/resolve", 200, 50*time.Millisecond)
	RecordProviderCall(m, "pubchem", "name_to_cid", true, time.Second)
	RecordCacheAccess(m, "resolve", true)
	RecordError(m, "orchestrator", "SRC_002")
}

func TestTimer_NilHistogramIsSafe(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, timer.ObserveDuration)
}
