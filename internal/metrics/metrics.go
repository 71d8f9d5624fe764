// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the assessment pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so that tests and multiple servers in one
// process do not collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	scores          prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	loginFailures   prometheus.Counter
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessments_submitted_total",
				Help: "Assessments stored, by treatment tier",
			},
			[]string{"tier"},
		),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_normalized_score",
			Help:    "Distribution of normalized assessment scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_lookups_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_login_failures_total",
			Help: "Rejected admin login attempts",
		}),
	}

	m.registry.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.submissions,
		m.scores,
		m.cacheLookups,
		m.loginFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		duration := time.Since(start).Seconds()

		m.requestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.requestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ObserveSubmission records one stored assessment. Safe on a nil receiver.
func (m *Metrics) ObserveSubmission(tierLevel, normalizedScore int) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(strconv.Itoa(tierLevel)).Inc()
	m.scores.Observe(float64(normalizedScore))
}

// ObserveCache records a cache hit or miss. Safe on a nil receiver.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

// ObserveLoginFailure counts a rejected admin login. Safe on a nil receiver.
func (m *Metrics) ObserveLoginFailure() {
	if m == nil {
		return
	}
	m.loginFailures.Inc()
}
