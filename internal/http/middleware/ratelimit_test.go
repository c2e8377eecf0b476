package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-api/internal/domain"
)

func TestKeyByIP_IgnoresUserHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	key := KeyByIP()(c)
	if !strings.HasPrefix(key, "ip:") || !strings.Contains(key, "203.0.113.9") {
		t.Fatalf("expected ip-based key; got %q", key)
	}

	req.Header.Set(UserIDHeader, "1001")
	if got := KeyByIP()(c); got != key {
		t.Fatalf("user header must not change the key: %q vs %q", got, key)
	}
}

func TestNewRateLimiter_DefaultsAndVisitorReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d keyFn=%v", rl.burst, rl.keyFn != nil)
	}
	lim := rl.getVisitor("k1")
	if got := rl.getVisitor("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, nil)
	rl.ttl = time.Nanosecond
	rl.getVisitor("old")
	rl.visitors["old"].lastSeen = time.Now().Add(-time.Hour)

	rl.cleanupN = cleanupEveryN - 1
	rl.getVisitor("new")

	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("idle visitor should have been evicted")
	}
	if _, ok := rl.visitors["new"]; !ok {
		t.Fatalf("requested visitor must exist")
	}
	if rl.cleanupN != 0 {
		t.Fatalf("cleanup counter not reset: %d", rl.cleanupN)
	}
}

func TestRateLimiter_Handler_429AndUserHeaderRotation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.0001, 1, KeyByIP())

	r := gin.New()
	r.Use(RequestID(), ErrorResponder(), rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := serveWithHeader(r, http.MethodGet, UserIDHeader, "a"); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w := serveWithHeader(r, http.MethodGet, UserIDHeader, "a")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second request: %d retry-after=%q", w.Code, w.Header().Get("Retry-After"))
	}
	if b := decodeEnvelope(t, w); b.Code != "rate_limited" || b.Message != "rate limit exceeded" || b.RequestID == "" {
		t.Fatalf("body=%+v", b)
	}
	if w := serveWithHeader(r, http.MethodGet, UserIDHeader, "b"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("new user header from same IP must share the bucket: %d", w.Code)
	}
}

func TestRateLimiter_Handler_BypassOnReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.0001, 1, func(*gin.Context) string { return "same" })

	r := gin.New()
	r.Use(ErrorResponder())
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") != "" {
			c.Set(ctxKeyIdemReplay, &domain.Idempotency{})
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	serveWithHeader(r, http.MethodGet, "X-Replay", "")
	for i := 0; i < 3; i++ {
		if w := serveWithHeader(r, http.MethodGet, "X-Replay", "1"); w.Code != http.StatusOK {
			t.Fatalf("replay %d limited: %d", i, w.Code)
		}
	}
	if w := serveWithHeader(r, http.MethodGet, "X-Replay", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected limit for non-replay: %d", w.Code)
	}
}
