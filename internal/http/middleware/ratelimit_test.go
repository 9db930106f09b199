package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	key := KeyByUserOrIP()
	if got := key(c); got != "ip:203.0.113.9" {
		t.Fatalf("got %q", got)
	}
	c.Request.Header.Set("X-User-ID", "u-hdr")
	if got := key(c); got != "user:u-hdr" {
		t.Fatalf("got %q", got)
	}
	c.Set("userID", "u-ctx")
	if got := key(c); got != "user:u-ctx" {
		t.Fatalf("got %q", got)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d", rl.burst)
	}
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Hour)}
	rl.visitors["fresh"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now}
	rl.lookups = sweepEvery - 1

	lim := rl.limiterFor("new")
	if rl.limiterFor("new") != lim {
		t.Fatal("bucket not reused")
	}
	if _, ok := rl.visitors["old"]; ok {
		t.Fatal("idle bucket survived sweep")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Fatal("fresh bucket evicted")
	}
}

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Handler())
	r.POST("/medications", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/notes/stream", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiter_RejectsWithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(0.5, 1, KeyByUserOrIP())
	now := time.Now()
	rl.now = func() time.Time { return now }
	r := newLimitedRouter(rl)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/medications", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("first: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/medications", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != "too_many_requests" {
		t.Fatalf("body = %v", body)
	}

	// The rejected request's reservation was returned, so one refill later
	// the caller is served again.
	now = now.Add(2 * time.Second)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/medications", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("after refill: %d", w.Code)
	}
}

func TestRateLimiter_ZeroRate(t *testing.T) {
	r := newLimitedRouter(NewRateLimiter(0, 1, KeyByUserOrIP()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/medications", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/medications", nil))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "60" {
		t.Fatalf("status=%d retry=%q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_BypassAndSkip(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	rl.Skip = SkipEventStreams
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") != "" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.POST("/medications", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/notes/stream", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Spend the only token.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/medications", nil))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes/stream", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("stream %d limited: %d", i, w.Code)
		}

		w = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/medications", nil)
		req.Header.Set("X-Replay", "1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("replay %d limited: %d", i, w.Code)
		}
	}
}
