package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scribe/internal/services"
)

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "scribe-test/1.0" {
			t.Errorf("expected user agent header, got %q", got)
		}
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	fetcher := NewFetcher(time.Second, "scribe-test/1.0", 1024)
	body, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchCapsResponseSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	fetcher := NewFetcher(time.Second, "", 100)
	body, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(body) != 100 {
		t.Fatalf("expected capped body of 100 bytes, got %d", len(body))
	}
}

func TestFetchClassifiesStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found is permanent", http.StatusNotFound, services.IsPermanent},
		{"gone is permanent", http.StatusGone, services.IsPermanent},
		{"rate limit is quota", http.StatusTooManyRequests, services.IsQuota},
		{"server error is transient", http.StatusBadGateway, services.IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			fetcher := NewFetcher(time.Second, "", 1024)
			_, err := fetcher.Fetch(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Fatalf("wrong classification for status %d: %v", tt.status, err)
			}
			if hits.Load() != 1 {
				t.Fatalf("status errors must not be retried, saw %d requests", hits.Load())
			}
		})
	}
}

func TestFetchRetriesTransportFailureOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			// Hijack and drop the connection so the client sees a
			// transport failure, not an HTTP status.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Fatalf("hijack failed: %v", err)
			}
			conn.Close()
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	fetcher := NewFetcher(time.Second, "", 1024)
	body, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if string(body) != "recovered" {
		t.Fatalf("unexpected body %q", body)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected exactly 2 requests, saw %d", hits.Load())
	}
}
