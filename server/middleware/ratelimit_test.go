package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	handler := limiter.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/engine/metrics", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	handler := limiter.Middleware()(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/engine/metrics", nil)
	first.RemoteAddr = "10.0.0.1:4000"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, first)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first client to succeed, got %d", res.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/engine/metrics", nil)
	second.RemoteAddr = "10.0.0.2:4000"
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, second)
	if res.Code != http.StatusOK {
		t.Fatalf("expected second client to succeed, got %d", res.Code)
	}
}

func TestRateLimiterUsesForwardedFor(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	handler := limiter.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/engine/metrics", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected forwarded request to succeed, got %d", res.Code)
	}

	direct := httptest.NewRequest(http.MethodGet, "/api/engine/metrics", nil)
	direct.RemoteAddr = "10.0.0.1:4000"
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, direct)
	if res.Code != http.StatusOK {
		t.Fatalf("expected direct request to use its own bucket, got %d", res.Code)
	}
}
