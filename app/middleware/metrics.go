package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// FilterSearchesTotal counts filter evaluations by execution path
	FilterSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_searches_total",
			Help: "Total number of filter searches by query path",
		},
		[]string{"path"},
	)

	// BadgeComputationsTotal counts freshness badge refreshes by outcome
	BadgeComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_computations_total",
			Help: "Total number of freshness badge computations by outcome",
		},
		[]string{"outcome"},
	)

	// JobIngestionRunsTotal counts provider ingestion runs by outcome
	JobIngestionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_ingestion_runs_total",
			Help: "Total number of job provider ingestion runs by outcome",
		},
		[]string{"outcome"},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route path when available.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path // Use route template to avoid high cardinality
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}
