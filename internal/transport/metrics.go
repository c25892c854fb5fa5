package transport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency by method, path and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	// RunsStarted counts simulation runs started by a worker.
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_runs_started_total",
			Help: "Total number of simulation runs started",
		},
	)

	// TicksProcessed counts market data events processed across all runs.
	TicksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_ticks_processed_total",
			Help: "Total number of market data events processed",
		},
		[]string{"run_id"},
	)

	// QuotesSubmitted is registered for quotes submitted by the market
	// maker; nothing in this module increments it, so it stays at 0.
	QuotesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_quotes_submitted_total",
			Help: "Total number of quotes submitted",
		},
		[]string{"run_id"},
	)

	// RiskState tracks the current risk state as a gauge (0=Normal,
	// 1=Warning, 2=Breached, 3=KillSwitch).
	RiskState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mm_risk_state",
			Help: "Current risk state per run",
		},
		[]string{"run_id"},
	)

	// Position tracks the current net position per run.
	Position = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mm_position",
			Help: "Current net position per run",
		},
		[]string{"run_id"},
	)
)

// PrometheusMiddleware records request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Observe(duration)
	}
}
