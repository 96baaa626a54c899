//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(collector *MetricsCollector) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandlers(collector).Register(mux)
	return mux
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("empty metrics", func(t *testing.T) {
		mux := newTestMux(NewMetricsCollector(true))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body metricsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Enabled)
		assert.Empty(t, body.Operations)
	})

	t.Run("metrics with data", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		require.NoError(t, collector.RecordOperation("filter", func() (int, error) { return 3, nil }))

		w := httptest.NewRecorder()
		newTestMux(collector).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		var body metricsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Operations, 1)
		assert.Equal(t, "filter", body.Operations[0].Operation)
		assert.Equal(t, 1, body.Summary.TotalOperations)
		assert.Equal(t, int64(3), body.Summary.TotalRows)
	})

	t.Run("delete clears metrics", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		require.NoError(t, collector.RecordOperation("sort", func() (int, error) { return 1, nil }))
		mux := newTestMux(collector)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/metrics", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, collector.GetMetrics())

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		var body metricsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Zero(t, body.Summary.TotalOperations)
	})

	t.Run("invalid method", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestMux(NewMetricsCollector(true)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/metrics", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("health check", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestMux(NewMetricsCollector(false)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ok", response["status"])
		assert.NotEmpty(t, response["timestamp"])
		assert.Equal(t, false, response["metrics"])
	})

	t.Run("invalid method", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestMux(NewMetricsCollector(true)).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	collector := NewMetricsCollector(true)
	require.Error(t, collector.RecordOperation("<save>", func() (int, error) { return 0, errors.New("denied") }))

	w := httptest.NewRecorder()
	newTestMux(collector).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "datafilter Monitoring")
	assert.Contains(t, body, "&lt;save&gt;")
	assert.NotContains(t, body, "<save>")
	assert.Contains(t, body, "denied")
}
