// Package metrics exposes Prometheus collectors for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusmarket_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Messaging
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campusmarket_messages_sent_total",
			Help: "Total number of direct messages stored",
		},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_rate_limited_total",
			Help: "Requests rejected by a rate limiter, by action",
		},
		[]string{"action"},
	)

	DegradedReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_degraded_reads_total",
			Help: "Read paths that swallowed a store error and returned an empty result",
		},
		[]string{"operation"},
	)

	// Live feed
	FeedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmarket_feed_clients",
			Help: "Number of connected live-feed sockets",
		},
	)

	FeedDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campusmarket_feed_dropped_total",
			Help: "Live-feed clients dropped because their send buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		MessagesSent,
		RateLimited,
		DegradedReads,
		FeedClients,
		FeedDropped,
	)
}

// Handler returns an http.Handler for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
