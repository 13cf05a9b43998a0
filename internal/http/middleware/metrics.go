package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes recorded by RecordLookup.
const (
	LookupFound     = "found"
	LookupNotFound  = "not_found"
	LookupInvalid   = "invalid"
	LookupThrottled = "throttled"
	LookupError     = "error"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_registry_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	lookupOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_registry_lookups_total",
			Help: "Secret-authenticated beacon lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// Metrics records request duration per matched route. Unmatched paths share
// one label so that scanners cannot grow the series count.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		httpRequestDuration.
			WithLabelValues(c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// RecordLookup counts one beacon lookup outcome.
func RecordLookup(outcome string) {
	lookupOutcomes.WithLabelValues(outcome).Inc()
}
