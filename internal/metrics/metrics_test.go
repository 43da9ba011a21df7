package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.MessageProcessed("text")
	m.MessageProcessed("text")
	m.MessageProcessed("visualization")
	m.ProcessingFailed()
	m.SocketOpened()
	m.SocketOpened()
	m.SocketClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("visualization")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sockets))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "GET /healthz", 200, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "agroai_http_request_duration_seconds_count")
	assert.Contains(t, string(body), `route="GET /healthz"`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageProcessed("text")
		m.ProcessingFailed()
		m.SocketOpened()
		m.SocketClosed()
		m.ObserveRequest("GET", "/", 200, time.Second)
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}
