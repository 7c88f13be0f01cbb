package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()
	assert.Zero(t, m.CacheHitRatio())

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.InDelta(t, 2.0/3.0, m.CacheHitRatio(), 1e-9)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `tutorhub_cache_lookups_total{result="hit"} 2`)
	assert.Contains(t, rec.Body.String(), `tutorhub_cache_lookups_total{result="miss"} 1`)
}

func TestMetricsServiceExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/tasks/:id", http.StatusOK, 20*time.Millisecond)
	m.RecordTaskCompletion("completed")
	m.RecordRoutineSweep(3, 1, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tutorhub_http_requests_total{method="GET",route="/api/v1/tasks/:id",status="200"} 1`)
	assert.Contains(t, body, `tutorhub_task_completions_total{status="completed"} 1`)
	assert.Contains(t, body, `tutorhub_routine_sweep_routines_total{outcome="failed"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordRoutineSweep(1, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
