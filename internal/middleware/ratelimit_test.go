package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(limit int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, time.Minute)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter(5)

	for i := range 5 {
		if !rl.Allow("key") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("key") {
		t.Error("6th request should be denied")
	}
	if !rl.Allow("other") {
		t.Error("other key should be counted separately")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl, clock := newTestLimiter(3)

	for range 3 {
		rl.Allow("key")
	}
	if rl.Allow("key") {
		t.Error("should be blocked within window")
	}

	clock.t = clock.t.Add(time.Minute)
	if !rl.Allow("key") {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, clock := newTestLimiter(5)

	rl.Allow("expired")
	clock.t = clock.t.Add(2 * time.Minute)
	rl.Allow("active")

	rl.Cleanup()

	if _, ok := rl.windows["expired"]; ok {
		t.Error("expired window should have been removed")
	}
	if _, ok := rl.windows["active"]; !ok {
		t.Error("active window should remain")
	}
}

func TestLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(2)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/settlements", rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i, want := range []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests} {
		req := httptest.NewRequest("POST", "/api/settlements", nil)
		req.RemoteAddr = "192.168.1.10:5000"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}

	req := httptest.NewRequest("POST", "/api/settlements", nil)
	req.RemoteAddr = "192.168.1.11:5000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("different client: status = %d, want 201", rec.Code)
	}
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	if got := RealIP(req); got != "10.0.0.5" {
		t.Errorf("RealIP = %q, want 10.0.0.5", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := RealIP(req); got != "203.0.113.9" {
		t.Errorf("RealIP = %q, want 203.0.113.9", got)
	}
}
