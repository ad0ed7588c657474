// Package metrics provides Prometheus instrumentation for the reconciliation service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gambino",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gambino",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ReportsIngestedTotal counts hardware reports accepted at ingestion.
	ReportsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gambino",
		Name:      "reports_ingested_total",
		Help:      "Total daily reports accepted at ingestion.",
	})

	// ReportsRejectedTotal counts reports rejected before storage by reason.
	ReportsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gambino",
			Name:      "reports_rejected_total",
			Help:      "Total reports rejected at ingestion by reason.",
		},
		[]string{"reason"},
	)

	// VouchersRecordedTotal counts voucher redemption events recorded.
	VouchersRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gambino",
		Name:      "vouchers_recorded_total",
		Help:      "Total voucher redemption events recorded.",
	})

	// StatusChangesTotal counts reconciliation status changes by target status.
	StatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gambino",
			Name:      "status_changes_total",
			Help:      "Total reconciliation status changes by new status.",
		},
		[]string{"status"},
	)

	// AggregationsTotal counts daily summary computations.
	AggregationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gambino",
		Name:      "aggregations_total",
		Help:      "Total daily financial summary computations.",
	})

	// QualityScore observes the distribution of report quality scores.
	QualityScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gambino",
		Name:      "report_quality_score",
		Help:      "Distribution of computed report quality scores (0-100).",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// ActiveWebSocketClients tracks connected dashboard WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gambino",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gambino", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gambino", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gambino", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gambino", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ReportsIngestedTotal,
		ReportsRejectedTotal,
		VouchersRecordedTotal,
		StatusChangesTotal,
		AggregationsTotal,
		QualityScore,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
