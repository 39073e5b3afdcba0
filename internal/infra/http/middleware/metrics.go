package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern usa o padrão do chi (/cards/{cardId}/stage) para não explodir
// a cardinalidade com ids de card.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// PipelineMetrics registra o comportamento do quadro: reloads, resultados
// descartados, buscas de simulação que falharam e alterações de card.
type PipelineMetrics struct {
	reloads        *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	staleReloads   prometheus.Counter
	degraded       *prometheus.CounterVec
	mutations      *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_reloads_total",
				Help: "Total number of board reloads by outcome",
			},
			[]string{"outcome"},
		),
		reloadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_reload_duration_seconds",
				Help:    "Duration of board reloads in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		staleReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_stale_reloads_total",
				Help: "Reload results discarded because a newer reload already committed",
			},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_degraded_lookups_total",
				Help: "Simulation lookups that failed and fell back to lead data",
			},
			[]string{"view"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_card_mutations_total",
				Help: "Card moves and deletes by outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (m *PipelineMetrics) ObserveReload(outcome string, d time.Duration) {
	m.reloads.WithLabelValues(outcome).Inc()
	m.reloadDuration.Observe(d.Seconds())
}

func (m *PipelineMetrics) IncStaleReload() {
	m.staleReloads.Inc()
}

func (m *PipelineMetrics) IncDegradedLookup(view string) {
	m.degraded.WithLabelValues(view).Inc()
}

func (m *PipelineMetrics) IncCardMutation(operation, outcome string) {
	m.mutations.WithLabelValues(operation, outcome).Inc()
}
