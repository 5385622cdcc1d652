package extraction_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/extraction"
	"scribe/internal/sources"
	"scribe/internal/testsupport"
)

func newEngine(t *testing.T, mutate func(*config.Config)) *extraction.Engine {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Extraction.MinLiveLength = 200
	cfg.Extraction.ArchiveEnabled = false
	if mutate != nil {
		mutate(cfg)
	}
	return extraction.NewEngine(cfg, sources.NewRegistry(), nil)
}

func longParagraph(word string) string {
	return strings.Repeat(word+" lorem ipsum dolor sit amet consectetur. ", 20)
}

func candidateFor(serverURL string) discovery.Candidate {
	return discovery.Candidate{
		SourceDomain: sources.HostOf(serverURL),
		URL:          serverURL,
		Method:       discovery.MethodDirect,
		Rank:         1,
	}
}

func TestExtractUsesSelectorChain(t *testing.T) {
	body := longParagraph("article")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<nav>Site navigation that must not leak</nav>
			<article>%s</article>
			<footer>footer junk</footer>
		</body></html>`, body)
	}))
	defer server.Close()

	engine := newEngine(t, nil)
	result, err := engine.Extract(context.Background(), candidateFor(server.URL))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.HasPrefix(result.Method, "selector:generic:article") {
		t.Fatalf("expected article selector, got method %q", result.Method)
	}
	if strings.Contains(result.Text, "navigation") || strings.Contains(result.Text, "footer junk") {
		t.Fatalf("boilerplate leaked into text: %q", result.Text)
	}
	if result.CharLength != len(result.Text) {
		t.Fatalf("CharLength %d does not match text length %d", result.CharLength, len(result.Text))
	}
}

func TestExtractFollowsTranscriptLink(t *testing.T) {
	transcript := longParagraph("transcript")
	mux := http.NewServeMux()
	mux.HandleFunc("/episode", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<article>Episode notes, too short to satisfy anyone.</article>
			<a href="/episode/transcript">Read the full transcript</a>
		</body></html>`)
	})
	mux.HandleFunc("/episode/transcript", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><article>%s</article></body></html>`, transcript)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	engine := newEngine(t, nil)
	result, err := engine.Extract(context.Background(), candidateFor(server.URL+"/episode"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Method != "transcript_link" {
		t.Fatalf("expected transcript link hop, got method %q", result.Method)
	}
	if !strings.Contains(result.Text, "transcript lorem ipsum") {
		t.Fatalf("expected linked page text, got %q", result.Text)
	}
}

func TestExtractFallsBackToArchive(t *testing.T) {
	snapshotText := longParagraph("snapshot")
	pages := http.NewServeMux()
	pages.HandleFunc("/dead", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	pages.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><article>%s</article></body></html>`, snapshotText)
	})
	pageServer := httptest.NewServer(pages)
	defer pageServer.Close()

	availability := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != pageServer.URL+"/dead" {
			t.Errorf("unexpected availability lookup for %q", got)
		}
		fmt.Fprintf(w, `{"archived_snapshots":{"closest":{"available":true,"url":%q,"timestamp":"20250101000000"}}}`,
			pageServer.URL+"/snapshot")
	}))
	defer availability.Close()

	engine := newEngine(t, func(cfg *config.Config) {
		cfg.Extraction.ArchiveEnabled = true
		cfg.Extraction.ArchiveBaseURL = availability.URL
	})
	result, err := engine.Extract(context.Background(), candidateFor(pageServer.URL+"/dead"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Method != "archive" {
		t.Fatalf("expected archive fallback, got method %q", result.Method)
	}
	if !strings.Contains(result.Text, "snapshot lorem ipsum") {
		t.Fatalf("expected snapshot text, got %q", result.Text)
	}
}

func TestExtractReturnsShortLiveTextWhenNothingBetterExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article>`+strings.Repeat("short but real content. ", 5)+`</article></body></html>`)
	}))
	defer server.Close()

	engine := newEngine(t, nil)
	result, err := engine.Extract(context.Background(), candidateFor(server.URL))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.CharLength == 0 {
		t.Fatal("expected degraded short text rather than an error")
	}
}

func TestExtractPropagatesPermanentFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	engine := newEngine(t, nil)
	if _, err := engine.Extract(context.Background(), candidateFor(server.URL)); err == nil {
		t.Fatal("expected error when live fetch fails and archive is disabled")
	}
}
