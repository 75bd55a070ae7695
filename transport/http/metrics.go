package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faucet_http_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faucet_http_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	signInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faucet_signins_total",
		Help: "Sign-in attempts by result.",
	}, []string{"result"})

	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faucet_claims_total",
		Help: "Claim attempts by result.",
	}, []string{"result"})
)

// Result labels for the sign-in and claim counters.
const (
	resultSuccess        = "success"
	resultRejected       = "rejected"
	resultAlreadyClaimed = "already_claimed"
	resultError          = "error"
)

// PrometheusMiddleware records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		requestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler serves the Prometheus exposition format.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func recordSignIn(result string) {
	signInsTotal.WithLabelValues(result).Inc()
}

func recordClaim(result string) {
	claimsTotal.WithLabelValues(result).Inc()
}
