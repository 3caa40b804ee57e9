package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe("task", "list", OutcomeOK, 10*time.Millisecond)
	m.Observe("task", "list", OutcomeOK, 20*time.Millisecond)
	m.Observe("task", "create", OutcomeClientError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("task", "list", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("task", "create", OutcomeClientError)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe("task", "list", OutcomeOK, time.Millisecond)
}

func TestOutcomeForStatus(t *testing.T) {
	assert.Equal(t, OutcomeOK, OutcomeForStatus(http.StatusCreated))
	assert.Equal(t, OutcomeClientError, OutcomeForStatus(http.StatusConflict))
	assert.Equal(t, OutcomeServerError, OutcomeForStatus(http.StatusInternalServerError))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Observe("user", "get", OutcomeOK, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `raido_requests_total{kind="user",operation="get",outcome="ok"} 1`))
	assert.Contains(t, body, "raido_request_duration_seconds_bucket")
}
