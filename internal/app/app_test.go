package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitMiddleware_PerIP(t *testing.T) {
	limiter := newIPRateLimiter(1, 1, time.Minute)
	var hits int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})
	h := rateLimitMiddleware(limiter, inner)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.RemoteAddr = "1.1.1.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request blocked, got %d", rec2.Code)
	}
	if hits != 1 {
		t.Fatalf("expected handler invoked once, got %d", hits)
	}
}

func TestRateLimitMiddleware_DifferentIPs(t *testing.T) {
	limiter := newIPRateLimiter(1, 1, time.Minute)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := rateLimitMiddleware(limiter, inner)

	req1 := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req1.RemoteAddr = "2.2.2.2:1000"
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first IP allowed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req2.RemoteAddr = "3.3.3.3:2000"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected second IP allowed, got %d", rec2.Code)
	}
}

func TestClientIPExtraction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 192.168.0.1")
	if ip := clientIP(req); ip != "10.0.0.1" {
		t.Fatalf("expected X-Forwarded-For ip, got %s", ip)
	}

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "172.16.0.5")
	if ip := clientIP(req); ip != "172.16.0.5" {
		t.Fatalf("expected X-Real-IP, got %s", ip)
	}

	req.Header.Del("X-Real-IP")
	req.RemoteAddr = "4.4.4.4:8080"
	if ip := clientIP(req); ip != "4.4.4.4" {
		t.Fatalf("expected RemoteAddr host, got %s", ip)
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := corsMiddleware([]string{"http://localhost:5173"}, inner)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %q", got)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req2.Header.Set("Origin", "http://evil.example")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if got := rec2.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/tasks/42/versions/7", "/api/tasks"},
		{"/api/compare", "/api/compare"},
		{"/healthz", "/healthz"},
		{"/", "/"},
	}
	for _, tc := range tests {
		if got := routeLabel(tc.path); got != tc.want {
			t.Fatalf("routeLabel(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
