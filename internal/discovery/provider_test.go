package discovery_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scribe/internal/discovery"
	"scribe/internal/services"
)

func TestHTTPSearchProviderParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("expected format=json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"url":"https://example.com/a","title":"A","content":"snippet a"},
			{"url":"https://example.com/b","title":"B","content":"snippet b"},
			{"url":"https://example.com/c","title":"C","content":"snippet c"}
		]}`))
	}))
	defer server.Close()

	provider := discovery.NewHTTPSearchProvider(server.URL, "", time.Second)
	results, err := provider.Query(context.Background(), "test query", 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected maxResults to cap hits, got %d", len(results))
	}
	if results[0].URL != "https://example.com/a" {
		t.Fatalf("unexpected first result %+v", results[0])
	}
}

func TestHTTPSearchProviderClassifiesRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := discovery.NewHTTPSearchProvider(server.URL, "", time.Second)
	if _, err := provider.Query(context.Background(), "q", 5); !services.IsQuota(err) {
		t.Fatalf("expected quota classification, got %v", err)
	}
}

func TestNewHTTPSearchProviderRequiresBaseURL(t *testing.T) {
	if provider := discovery.NewHTTPSearchProvider("  ", "", time.Second); provider != nil {
		t.Fatal("expected nil provider without base URL")
	}
}
