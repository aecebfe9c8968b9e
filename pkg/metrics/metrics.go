package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyverse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	FeedCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyverse_feed_cache_hits_total",
		Help: "Homepage feed responses served from cache",
	})

	FeedCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyverse_feed_cache_misses_total",
		Help: "Homepage feed responses assembled from the store",
	})

	FeedAssemblyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyverse_feed_assembly_duration_seconds",
		Help:    "Time spent assembling the homepage from section queries",
		Buckets: prometheus.DefBuckets,
	})

	// EngagementEvents: kind is story_like, comment_like or pulse; outcome is applied or noop.
	EngagementEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_engagement_events_total",
			Help: "Engagement writes by kind and outcome",
		},
		[]string{"kind", "action", "outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_notifications_total",
			Help: "Notification attempts by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	ImageUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_image_uploads_total",
			Help: "Image uploads by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	CountersRepaired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_counters_repaired_total",
			Help: "Denormalized counters corrected by reconciliation",
		},
		[]string{"collection"},
	)

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyverse_websocket_connections",
		Help: "Open notification websocket connections",
	})
)

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
