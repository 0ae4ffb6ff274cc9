package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSAllowAll(t *testing.T) {
	m := NewCORSMiddleware([]string{"*"})
	handler := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/panels", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Fatalf("expected the origin echoed back, got %q", got)
	}
}

func TestCORSRestrictedOrigin(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://allowed.example.com"})
	handler := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/panels", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS headers for a disallowed origin, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	m := NewCORSMiddleware([]string{"*"})
	handler := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/panels", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
}
