package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/himanishpuri/omrhythm/pkg/models"
)

// Metrics holds the Prometheus collectors of one server.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	AnalysesCreated prometheus.Counter
	AnalysesDeleted prometheus.Counter
	AbnormalStacks  prometheus.Counter
	AnalyzeDuration prometheus.Histogram
	Exports         *prometheus.CounterVec
}

// NewMetrics creates collectors on a private registry, so several servers
// can live in one process.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AnalysesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_created_total",
			Help:      "Total number of stored analyses",
		}),
		AnalysesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_deleted_total",
			Help:      "Total number of deleted analyses",
		}),
		AbnormalStacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "abnormal_stacks_total",
			Help:      "Total number of stacks left abnormal by the rhythm engine",
		}),
		AnalyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analyze_duration_seconds",
			Help:      "Time spent loading, processing and storing one system",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of exports by kind",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.AnalysesCreated,
		m.AnalysesDeleted,
		m.AbnormalStacks,
		m.AnalyzeDuration,
		m.Exports,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAnalysis records a stored analysis.
func (m *Metrics) ObserveAnalysis(a *models.Analysis, elapsed time.Duration) {
	m.AnalysesCreated.Inc()
	m.AnalyzeDuration.Observe(elapsed.Seconds())
	for _, st := range a.Stacks {
		if st.Abnormal {
			m.AbnormalStacks.Inc()
		}
	}
}

// Middleware counts requests per route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
