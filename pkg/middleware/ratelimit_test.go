package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func rateLimitedRouter(limiter *KeyedRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(limiter))
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r http.Handler, subject string) int {
	return doGetFrom(r, "192.0.2.1:1234", subject)
}

func doGetFrom(r http.Handler, remoteAddr, subject string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	if subject != "" {
		req.Header.Set("X-Subject-ID", subject)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware(t *testing.T) {
	// One token per client and a refill far slower than the test.
	r := rateLimitedRouter(NewKeyedRateLimiter(rate.Every(time.Hour), 1))

	if code := doGet(r, ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := doGet(r, ""); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}

func TestRateLimitMiddlewareIgnoresSubjectHeader(t *testing.T) {
	r := rateLimitedRouter(NewKeyedRateLimiter(rate.Every(time.Hour), 1))

	if code := doGet(r, "u1"); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	for _, subject := range []string{"u2", "u3", "admin", ""} {
		if code := doGet(r, subject); code != http.StatusTooManyRequests {
			t.Fatalf("subject %q from the same IP: expected 429, got %d", subject, code)
		}
	}
}

func TestRateLimitMiddlewareKeysByClientIP(t *testing.T) {
	r := rateLimitedRouter(NewKeyedRateLimiter(rate.Every(time.Hour), 1))

	if code := doGetFrom(r, "192.0.2.1:1000", "u1"); code != http.StatusOK {
		t.Fatalf("first IP: expected 200, got %d", code)
	}
	if code := doGetFrom(r, "192.0.2.2:1000", "u1"); code != http.StatusOK {
		t.Fatalf("second IP has its own bucket, got %d", code)
	}
	if code := doGetFrom(r, "192.0.2.1:2000", "u1"); code != http.StatusTooManyRequests {
		t.Fatalf("first IP on a new port: expected 429, got %d", code)
	}
}

func TestKeyedRateLimiterSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewKeyedRateLimiter(rate.Every(time.Hour), 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") {
		t.Fatal("first request should pass")
	}
	now = now.Add(5 * time.Minute)
	l.Allow("b")

	now = now.Add(idleTTL - time.Minute)
	l.Sweep()

	l.mu.Lock()
	_, hasA := l.clients["a"]
	_, hasB := l.clients["b"]
	l.mu.Unlock()
	if hasA || !hasB {
		t.Fatalf("expected only idle client swept, a=%v b=%v", hasA, hasB)
	}
	if !l.Allow("a") {
		t.Fatal("swept client should start with a fresh bucket")
	}
}
