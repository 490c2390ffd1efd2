package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	pipelineStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Total pipeline stage executions by outcome",
		},
		[]string{"stage", "status"},
	)

	pipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"stage"},
	)

	sessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total teacher sessions created",
		},
	)

	sessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_swept_total",
			Help: "Total teacher sessions removed by expiry sweeps",
		},
	)
)

// MetricsMiddleware collects Prometheus metrics for every HTTP request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordPipelineStage records one stage execution of the utterance pipeline.
func RecordPipelineStage(stage string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pipelineStageTotal.WithLabelValues(stage, status).Inc()
	pipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSessionCreated counts a successful teacher session creation.
func RecordSessionCreated() {
	sessionsCreatedTotal.Inc()
}

// RecordSessionsSwept counts teacher sessions removed by an expiry sweep.
func RecordSessionsSwept(n int64) {
	sessionsSweptTotal.Add(float64(n))
}
