package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.DELETE("/notes/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	base := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/notes/:id", "204"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404"))

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/notes/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/notes/:id", "204")); got != base+3 {
		t.Fatalf("route counter = %v, want %v", got, base+3)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404")); got != base404+1 {
		t.Fatalf("fallback counter = %v, want %v", got, base404+1)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v", got)
	}
}

func TestMetrics_StreamsTrackedSeparately(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())

	var during float64
	r.GET("/notes/stream", func(c *gin.Context) {
		during = testutil.ToFloat64(sseActive.WithLabelValues("/notes/stream"))
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(sseActive.WithLabelValues("/notes/stream"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notes/stream", nil))

	if during != before+1 {
		t.Fatalf("active during stream = %v, want %v", during, before+1)
	}
	if after := testutil.ToFloat64(sseActive.WithLabelValues("/notes/stream")); after != before {
		t.Fatalf("active after stream = %v, want %v", after, before)
	}
}
