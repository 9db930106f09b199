package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Labels are bounded: path is the registered route (c.FullPath()), so
// /notes/:id stays one series no matter how many notes exist.
var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of non-streaming HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Live list subscribers (GET …/stream). Kept apart from the latency
	// histogram since a stream lasts as long as the client stays connected.
	sseActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_sse_streams_active",
			Help: "Currently open server-sent event streams.",
		},
		[]string{"path"},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(128, 4, 8), // 128B..2MiB
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, sseActive, httpRespSize)
}

// Metrics instruments every request with Prometheus collectors. Mount
// promhttp.Handler() separately (the router serves it at /metrics).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		streaming := method == "GET" && strings.HasSuffix(path, "/stream")
		if streaming {
			sseActive.WithLabelValues(path).Inc()
			defer sseActive.WithLabelValues(path).Dec()
		} else {
			httpInflight.Inc()
			defer httpInflight.Dec()
		}

		c.Next()

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		if streaming {
			return
		}
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
