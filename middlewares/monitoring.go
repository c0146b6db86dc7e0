package middlewares

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
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_operations_total",
			Help: "Order submissions and persistence steps by outcome",
		},
		[]string{"operation", "status"},
	)

	catalogReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_reads_total",
			Help: "Catalog reads by resource and serving tier",
		},
		[]string{"resource", "source"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_merchant_notifications_total",
			Help: "Merchant notifications by transport and outcome",
		},
		[]string{"transport", "status"},
	)
)

// PrometheusMiddleware records count and latency per route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
	}
}

func RecordOrderOperation(operation string, success bool) {
	orderOperations.WithLabelValues(operation, outcome(success)).Inc()
}

// RecordCatalogRead counts which tier (CACHE, PRIMARY, FALLBACK) answered.
func RecordCatalogRead(resource, source string) {
	catalogReads.WithLabelValues(resource, source).Inc()
}

func RecordNotification(transport string, success bool) {
	notifications.WithLabelValues(transport, outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
