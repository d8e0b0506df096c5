package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperation("assign", OutcomeOK)
	c.RecordOperation("assign", OutcomeOK)
	c.RecordOperation("assign", OutcomeConflict)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("assign", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("assign", OutcomeConflict)))
}

func TestCollector_RecordEventPublish(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEventPublish("request.assigned", nil)
	c.RecordEventPublish("request.assigned", errors.New("broker down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("request.assigned", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("request.assigned", OutcomeError)))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTP(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "volunteer_http_requests_total"))
}
