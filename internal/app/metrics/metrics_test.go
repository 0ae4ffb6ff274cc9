package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/panels", "/api/panels"},
		{"/api/panels/usdbrl", "/api/panels/:id"},
		{"/api/panels/btc/history", "/api/panels/:id/history"},
		{"/api/news", "/api/news"},
		{"/healthz", "/healthz"},
	}
	for _, tc := range cases {
		if got := canonicalPath(tc.in); got != tc.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInstrumentHandlerRecordsStatus(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/panels/doge", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected the wrapped status to pass through, got %d", rec.Code)
	}

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "finterm_http_requests_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected finterm_http_requests_total to be registered")
	}
}

func TestRecordProviderRequest(t *testing.T) {
	RecordProviderRequest("yahoo", "ibov", nil)
	RecordProviderRequest("yahoo", "ibov", fmt.Errorf("boom"))
	RecordFallbackDepth("ibov", 2)
	RecordFallbackDepth("ibov", 0) // ignored
	RecordQuietSkip("ibov")
	SetStreamClients(3)

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"finterm_providers_requests_total",
		"finterm_providers_fallback_depth",
		"finterm_refresh_quiet_hour_skips_total",
		"finterm_stream_clients",
	} {
		if !names[want] {
			t.Fatalf("expected metric %s to be exported", want)
		}
	}
}
