package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

var _ usecase.PipelineMetrics = (*middleware.PipelineMetrics)(nil)

func TestPipelineMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewPipelineMetrics(reg)

	m.ObserveReload("success", 20*time.Millisecond)
	m.ObserveReload("success", 30*time.Millisecond)
	m.ObserveReload("error", time.Millisecond)
	m.IncStaleReload()
	m.IncDegradedLookup("grouped")
	m.IncCardMutation("move", "success")

	count, err := testutil.GatherAndCount(reg, "pipeline_reload_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP pipeline_reloads_total Total number of board reloads by outcome
# TYPE pipeline_reloads_total counter
pipeline_reloads_total{outcome="error"} 1
pipeline_reloads_total{outcome="success"} 2
# HELP pipeline_stale_reloads_total Reload results discarded because a newer reload already committed
# TYPE pipeline_stale_reloads_total counter
pipeline_stale_reloads_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"pipeline_reloads_total", "pipeline_stale_reloads_total"))
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.Metrics)
	r.Get("/cards/{cardId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cards/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
