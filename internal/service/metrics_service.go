package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are nil-safe.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	dbQueryDuration     *prometheus.HistogramVec
	cacheLookups        *prometheus.CounterVec
	declarationsCreated prometheus.Counter
	submissions         *prometheus.CounterVec
	screenshots         *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_cache_lookups_total",
		Help: "Declaration listing cache lookups by result",
	}, []string{"result"})

	declarationsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "declarations_created_total",
		Help: "Declaration rows inserted",
	})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "declaration_submissions_total",
		Help: "Declaration submissions by outcome",
	}, []string{"outcome"})

	screenshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "screenshot_uploads_total",
		Help: "Screenshot uploads by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, cacheLookups, declarationsCreated, submissions, screenshots, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		dbQueryDuration:     dbQueryDuration,
		cacheLookups:        cacheLookups,
		declarationsCreated: declarationsCreated,
		submissions:         submissions,
		screenshots:         screenshots,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordCacheLookup counts listing cache lookups by result: hit, miss or error.
func (m *MetricsService) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordSubmission counts a submission outcome and the rows it created.
func (m *MetricsService) RecordSubmission(outcome string, rows int) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if rows > 0 {
		m.declarationsCreated.Add(float64(rows))
	}
}

// RecordScreenshot counts screenshot upload outcomes.
func (m *MetricsService) RecordScreenshot(outcome string) {
	if m == nil {
		return
	}
	m.screenshots.WithLabelValues(outcome).Inc()
}
