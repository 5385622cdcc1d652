package pipeline_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scribe/internal/artifacts"
	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/extraction"
	"scribe/internal/ledger"
	"scribe/internal/pipeline"
	"scribe/internal/quality"
	"scribe/internal/sources"
	"scribe/internal/testsupport"
	"scribe/internal/workitem"
)

// stubStrategy yields a fixed candidate list, tracking how often it runs.
type stubStrategy struct {
	name       string
	candidates []discovery.Candidate
	calls      atomic.Int32
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) ProduceCandidates(_ context.Context, _ workitem.WorkItem) ([]discovery.Candidate, error) {
	s.calls.Add(1)
	return s.candidates, nil
}

// locatorStrategy proposes each item's own locator URL, like the first-line
// production strategy does.
type locatorStrategy struct{}

func (locatorStrategy) Name() string { return "locator" }

func (locatorStrategy) ProduceCandidates(_ context.Context, item workitem.WorkItem) ([]discovery.Candidate, error) {
	return []discovery.Candidate{{
		SourceDomain: sources.HostOf(item.Locator.URL),
		URL:          item.Locator.URL,
		Method:       discovery.MethodDirect,
	}}, nil
}

func acceptableArticle() string {
	var b strings.Builder
	b.WriteString("A Field Report\n\nBy Jane Doe\n\n")
	for i := 0; i < 50; i++ {
		b.WriteString("Grid-scale batteries have quietly changed how utilities plan for peak demand. ")
		b.WriteString("Operators now bid storage into markets designed around fuel contracts.\n\n")
	}
	return b.String()
}

func candidateFor(rawURL string) discovery.Candidate {
	return discovery.Candidate{
		SourceDomain: sources.HostOf(rawURL),
		URL:          rawURL,
		Method:       discovery.MethodWebSearch,
	}
}

type harness struct {
	cfg          *config.Config
	store        *ledger.Store
	orchestrator *pipeline.Orchestrator
}

func newHarness(t *testing.T, strategies ...discovery.Strategy) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return newHarnessWithConfig(t, cfg, strategies...)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, strategies ...discovery.Strategy) *harness {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	registry := sources.NewRegistry()
	artifactStore, err := artifacts.NewStore(cfg.Paths.ArtifactsDir)
	if err != nil {
		t.Fatalf("artifacts.NewStore: %v", err)
	}

	orchestrator := pipeline.NewOrchestrator(
		cfg,
		store,
		discovery.NewEngineWithStrategies(time.Second, nil, strategies...),
		extraction.NewEngine(cfg, registry, nil),
		quality.NewScorer(cfg.Quality),
		artifactStore,
		nil,
		nil,
	)
	return &harness{cfg: cfg, store: store, orchestrator: orchestrator}
}

func serveHTML(t *testing.T, pages map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hits.Add(1)
		fmt.Fprintf(w, "<html><body><article>%s</article></body></html>", body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestProcessCompletesWithAcceptableCandidate(t *testing.T) {
	server, _ := serveHTML(t, map[string]string{"/story": acceptableArticle()})
	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{candidateFor(server.URL + "/story")}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(server.URL+"/story", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}

	record, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", record.Status, record.LastError)
	}
	if record.Accepted == nil {
		t.Fatal("completed record must carry accepted candidate provenance")
	}
	if record.Accepted.Rank != 0 {
		t.Fatalf("expected first candidate accepted, got rank %d", record.Accepted.Rank)
	}
	if record.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", record.Attempts)
	}
	if record.TextRef == "" {
		t.Fatal("completed record must reference the stored artifact")
	}

	artifactStore, err := artifacts.NewStore(h.cfg.Paths.ArtifactsDir)
	if err != nil {
		t.Fatalf("reopen artifacts: %v", err)
	}
	text, err := artifactStore.Get(record.TextRef)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if !strings.Contains(text, "Grid-scale batteries") {
		t.Fatalf("artifact text does not match source: %q", text[:80])
	}
}

func TestProcessShortCircuitsTerminalJobs(t *testing.T) {
	server, hits := serveHTML(t, map[string]string{"/story": acceptableArticle()})
	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{candidateFor(server.URL + "/story")}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(server.URL+"/story", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}

	first, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	fetchesAfterFirst := hits.Load()
	strategyCallsAfterFirst := strategy.calls.Load()

	second, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if second.Status != first.Status || second.Attempts != first.Attempts || second.UpdatedAt != first.UpdatedAt {
		t.Fatalf("terminal job was touched by resubmission: %+v vs %+v", first, second)
	}
	if hits.Load() != fetchesAfterFirst {
		t.Fatal("resubmission of a settled item must not refetch anything")
	}
	if strategy.calls.Load() != strategyCallsAfterFirst {
		t.Fatal("resubmission of a settled item must not rerun discovery")
	}
}

func TestProcessStopsAtFirstAcceptedCandidate(t *testing.T) {
	server, _ := serveHTML(t, map[string]string{"/first": acceptableArticle()})
	secondServer, secondHits := serveHTML(t, map[string]string{"/second": acceptableArticle()})

	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{
		candidateFor(server.URL + "/first"),
		candidateFor(secondServer.URL + "/second"),
	}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(server.URL+"/first", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	record, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed, got %s", record.Status)
	}
	if record.Accepted.URL != strings.ToLower(server.URL)+"/first" {
		t.Fatalf("expected first candidate to win, got %q", record.Accepted.URL)
	}
	if secondHits.Load() != 0 {
		t.Fatal("later candidates must not be fetched once one is accepted")
	}
}

func TestProcessFallsPastRejectedCandidates(t *testing.T) {
	server, _ := serveHTML(t, map[string]string{
		"/junk": "404 not found. The page you requested does not exist.",
		"/good": acceptableArticle(),
	})
	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{
		candidateFor(server.URL + "/junk"),
		candidateFor(server.URL + "/good"),
	}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(server.URL+"/junk", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	record, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Status != ledger.StatusCompleted {
		t.Fatalf("expected completion via second candidate, got %s (%s)", record.Status, record.LastError)
	}
	if record.Accepted.Rank != 1 {
		t.Fatalf("expected the second candidate to win, got rank %d", record.Accepted.Rank)
	}
}

func TestProcessFailsWhenNoCandidatesDiscovered(t *testing.T) {
	strategy := &stubStrategy{name: "empty"}
	h := newHarness(t, strategy)

	item, err := workitem.NewPodcastEpisode("Obscure Show", "Episode 1", "", 0)
	if err != nil {
		t.Fatalf("NewPodcastEpisode: %v", err)
	}
	record, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", record.Status)
	}
	if record.LastError != "no candidates discovered" {
		t.Fatalf("unexpected failure reason %q", record.LastError)
	}
}

func TestProcessFailsWhenNothingMeetsBar(t *testing.T) {
	server, _ := serveHTML(t, map[string]string{"/junk": "Access denied. Sign in to read this content."})
	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{candidateFor(server.URL + "/junk")}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(server.URL+"/junk", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	record, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", record.Status)
	}
	if !strings.HasPrefix(record.LastError, "no candidates met quality bar") {
		t.Fatalf("unexpected failure reason %q", record.LastError)
	}
	if !strings.Contains(record.LastError, "reject") {
		t.Fatalf("failure reason should name the last verdict, got %q", record.LastError)
	}
	if record.TextRef != "" {
		t.Fatal("failed job must not reference an artifact")
	}
}

func TestProcessAttemptsCountCandidatesTried(t *testing.T) {
	server, _ := serveHTML(t, map[string]string{
		"/one":   "Access denied. Sign in to read this content.",
		"/two":   "404 not found. Nothing lives here.",
		"/three": "Page not found. Try the homepage instead.",
	})
	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{
		candidateFor(server.URL + "/one"),
		candidateFor(server.URL + "/two"),
		candidateFor(server.URL + "/three"),
	}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(server.URL+"/one", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	record, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", record.Status)
	}
	if record.Attempts != 3 {
		t.Fatalf("attempts must equal candidates tried (3), got %d", record.Attempts)
	}
}

func TestProcessFailureReasonCarriesLastFetchError(t *testing.T) {
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(gone.Close)

	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{candidateFor(gone.URL + "/vanished")}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(gone.URL+"/vanished", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	record, err := h.orchestrator.Process(t.Context(), item)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", record.Status)
	}
	if !strings.Contains(record.LastError, "404") {
		t.Fatalf("failure reason should carry the last fetch error, got %q", record.LastError)
	}
}

func TestProcessConcurrentSubmissionsSettleExactlyOnce(t *testing.T) {
	server, hits := serveHTML(t, map[string]string{"/story": acceptableArticle()})
	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{candidateFor(server.URL + "/story")}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(server.URL+"/story", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}

	const submitters = 8
	var wg sync.WaitGroup
	errs := make(chan error, submitters)
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.orchestrator.Process(t.Context(), item); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Process failed: %v", err)
	}

	record, err := h.store.GetJob(t.Context(), item.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if record.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed, got %s", record.Status)
	}
	if record.Attempts != 1 {
		t.Fatalf("exactly one worker may process the item, saw %d attempts", record.Attempts)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one fetch across all submitters, saw %d", hits.Load())
	}
}

func TestProcessReleasesClaimOnCancellation(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(func() {
		close(release)
		slow.Close()
	})

	strategy := &stubStrategy{name: "stub", candidates: []discovery.Candidate{candidateFor(slow.URL + "/page")}}
	h := newHarness(t, strategy)

	item, err := workitem.NewArticle(slow.URL+"/page", 0)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	if _, err := h.orchestrator.Process(ctx, item); err == nil {
		t.Fatal("expected cancellation error")
	}

	record, err := h.store.GetJob(t.Context(), item.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if record.Status != ledger.StatusPending {
		t.Fatalf("cancelled claim must release back to pending, got %s", record.Status)
	}
	if record.LeaseToken != "" {
		t.Fatalf("released job must not keep a lease, got %q", record.LeaseToken)
	}
}

func TestManagerDrainsQueue(t *testing.T) {
	server, _ := serveHTML(t, map[string]string{
		"/a": acceptableArticle(),
		"/b": acceptableArticle(),
		"/c": "404 not found",
	})
	h := newHarness(t, locatorStrategy{})

	for _, path := range []string{"/a", "/b", "/c"} {
		testsupport.EnqueueArticle(t, h.store, server.URL+path)
	}

	manager := pipeline.NewManager(h.cfg, h.store, h.orchestrator, nil)
	if err := manager.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	deadline := time.Now().Add(15 * time.Second)
	for {
		stats, err := h.store.Stats(t.Context())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.Completed+stats.Failed == 3 {
			if stats.Completed != 2 || stats.Failed != 1 {
				t.Fatalf("unexpected outcomes: %+v", stats)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue did not drain: %+v", stats)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
