package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 5) // 10 per minute, burst of 5
	defer rl.Stop()

	// First 5 requests should be allowed (burst)
	for i := 0; i < 5; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be rate limited (exceeded burst)
	if rl.Allow("10.0.0.1") {
		t.Error("Request 6 should be rate limited")
	}
}

func TestRateLimiter_DifferentClients(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()

	// Exhaust the first client's burst
	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Errorf("Client1 request %d should be allowed", i+1)
		}
	}

	if rl.Allow("10.0.0.1") {
		t.Error("Client1 should be rate limited")
	}

	// Second client should still have its full burst
	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.2") {
			t.Errorf("Client2 request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_GetState_UnknownClient(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 7)
	defer rl.Stop()

	remaining, _ := rl.GetState("never-seen")
	if remaining != 7 {
		t.Errorf("Expected full burst of 7, got %d", remaining)
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 1)
	rl.Stop()
	rl.Stop()
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(1, 2)
	defer rl.Stop()

	mw := RateLimitMiddleware(rl)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/revenues/rolling-year", nil)
		req.Header.Set(echo.HeaderXRealIP, "192.168.1.10")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		lastCode = rec.Code

		if i < 2 && rec.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, rec.Code)
		}
		if i == 2 && rec.Header().Get("Retry-After") == "" {
			t.Error("Expected Retry-After header on limited response")
		}
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429 on third request, got %d", lastCode)
	}
}

func TestRateLimitMiddleware_SetsHeaders(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(120, 10)
	defer rl.Stop()

	handler := RateLimitMiddleware(rl)(func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "120" {
		t.Errorf("Expected X-RateLimit-Limit 120, got %q", got)
	}
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("Expected X-RateLimit-Remaining header")
	}
}
