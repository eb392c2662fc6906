package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
)

func (m *HTTPServerMetrics) initSessionCollectors() {
	m.listFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apsb",
			Subsystem: "hierarchy",
			Name:      "list_fetch_total",
			Help:      "Total list fetches by level and status.",
		},
		[]string{"service", "level", "status"},
	)
	m.listFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "apsb",
			Subsystem: "hierarchy",
			Name:      "list_fetch_duration_seconds",
			Help:      "List fetch duration in seconds by level.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "level"},
	)
	m.staleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apsb",
			Subsystem: "hierarchy",
			Name:      "stale_responses_total",
			Help:      "List responses discarded because a newer selection superseded them.",
		},
		[]string{"service", "level"},
	)
	m.uploadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apsb",
			Subsystem: "upload",
			Name:      "requests_total",
			Help:      "Total uploads by status.",
		},
		[]string{"service", "status"},
	)
	m.uploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "apsb",
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Upload duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	m.viewerLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apsb",
			Subsystem: "viewer",
			Name:      "document_loads_total",
			Help:      "Total viewer document loads by status.",
		},
		[]string{"service", "status"},
	)
	m.viewerLoadSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "apsb",
			Subsystem: "viewer",
			Name:      "document_load_duration_seconds",
			Help:      "Viewer document load duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	m.tokenFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apsb",
			Subsystem: "viewer",
			Name:      "token_fetch_total",
			Help:      "Total viewer credential fetches by status.",
		},
		[]string{"service", "status"},
	)
}

func (m *HTTPServerMetrics) ObserveListFetch(level domain.Level, status string, duration time.Duration) {
	m.listFetchTotal.WithLabelValues(m.service, level.String(), status).Inc()
	m.listFetchDuration.WithLabelValues(m.service, level.String()).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveStaleResponse(level domain.Level) {
	m.staleTotal.WithLabelValues(m.service, level.String()).Inc()
}

func (m *HTTPServerMetrics) ObserveUpload(status string, duration time.Duration) {
	m.uploadTotal.WithLabelValues(m.service, status).Inc()
	m.uploadDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveViewerLoad(status string, duration time.Duration) {
	m.viewerLoadTotal.WithLabelValues(m.service, status).Inc()
	m.viewerLoadSeconds.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveTokenFetch(status string) {
	if status == "" {
		status = "unknown"
	}
	m.tokenFetchTotal.WithLabelValues(m.service, status).Inc()
}
