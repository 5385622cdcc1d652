package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"scribe/internal/ledger"
	"scribe/internal/testsupport"
)

func TestClaimWinsExactlyOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record := testsupport.EnqueueArticle(t, store, "https://example.com/contended")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.Claim(ctx, record.WorkItemID, fmt.Sprintf("lease-%d", n))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ledger.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one claim winner, got %d (conflicts %d)", wins, conflicts)
	}
	if conflicts != workers-1 {
		t.Fatalf("expected %d conflicts, got %d", workers-1, conflicts)
	}

	after, err := store.GetJob(ctx, record.WorkItemID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if after.Status != ledger.StatusInProgress {
		t.Fatalf("expected in_progress after contention, got %s", after.Status)
	}
}

func TestClaimTerminalJobConflicts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record := testsupport.EnqueueArticle(t, store, "https://example.com/done")
	if _, err := store.Claim(ctx, record.WorkItemID, "l1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := store.CommitFailed(ctx, record.WorkItemID, "l1", 1, "stub pages"); err != nil {
		t.Fatalf("CommitFailed: %v", err)
	}

	if _, err := store.Claim(ctx, record.WorkItemID, "l2"); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict claiming terminal job, got %v", err)
	}
}

func TestReleaseReturnsJobToPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record := testsupport.EnqueueArticle(t, store, "https://example.com/cancelled")
	if _, err := store.Claim(ctx, record.WorkItemID, "l1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.Release(ctx, record.WorkItemID, "l1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	after, err := store.GetJob(ctx, record.WorkItemID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if after.Status != ledger.StatusPending {
		t.Fatalf("expected pending after release, got %s", after.Status)
	}

	// A stale lease cannot release what it no longer owns.
	if err := store.Release(ctx, record.WorkItemID, "l1"); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict on double release, got %v", err)
	}
}

func TestCommitRequiresMatchingLease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record := testsupport.EnqueueArticle(t, store, "https://example.com/lease")
	if _, err := store.Claim(ctx, record.WorkItemID, "owner"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	if _, err := store.CommitFailed(ctx, record.WorkItemID, "impostor", 1, "nope"); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict for foreign lease, got %v", err)
	}
}

func TestCommitCompletedPersistsProvenance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record := testsupport.EnqueueEpisode(t, store, "Hard Fork", "The AI Election")
	if _, err := store.Claim(ctx, record.WorkItemID, "l1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	accepted := ledger.AcceptedCandidate{
		SourceDomain: "podscribe.app",
		URL:          "https://podscribe.app/ep/123",
		Method:       "site_search",
		Rank:         2,
	}
	committed, err := store.CommitCompleted(ctx, record.WorkItemID, "l1", 3, accepted, "artifacts/"+record.WorkItemID+".txt")
	if err != nil {
		t.Fatalf("CommitCompleted: %v", err)
	}
	if committed.Status != ledger.StatusCompleted || committed.Attempts != 3 {
		t.Fatalf("unexpected committed record %+v", committed)
	}
	if committed.Accepted == nil || *committed.Accepted != accepted {
		t.Fatalf("expected accepted candidate persisted, got %+v", committed.Accepted)
	}
	if committed.TextRef == "" {
		t.Fatal("expected text ref persisted")
	}
}

func TestDoubleTerminalCommitSurfacesHard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record := testsupport.EnqueueArticle(t, store, "https://example.com/twice")
	if _, err := store.Claim(ctx, record.WorkItemID, "l1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := store.CommitFailed(ctx, record.WorkItemID, "l1", 1, "first"); err != nil {
		t.Fatalf("CommitFailed: %v", err)
	}

	if _, err := store.CommitFailed(ctx, record.WorkItemID, "l1", 1, "second"); !errors.Is(err, ledger.ErrTerminalConflict) {
		t.Fatalf("expected ErrTerminalConflict, got %v", err)
	}
}

func TestRetryFailedHonoursCooldown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record := testsupport.EnqueueArticle(t, store, "https://example.com/retry")
	if _, err := store.Claim(ctx, record.WorkItemID, "l1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := store.CommitFailed(ctx, record.WorkItemID, "l1", 2, "no candidates"); err != nil {
		t.Fatalf("CommitFailed: %v", err)
	}

	if _, err := store.RetryFailed(ctx, record.WorkItemID, time.Hour); !errors.Is(err, ledger.ErrRetryCooldown) {
		t.Fatalf("expected ErrRetryCooldown, got %v", err)
	}

	retried, err := store.RetryFailed(ctx, record.WorkItemID, 0)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried.Status != ledger.StatusPending || retried.LastError != "" {
		t.Fatalf("expected clean pending job after retry, got %+v", retried)
	}

	// Retrying a non-failed job conflicts.
	if _, err := store.RetryFailed(ctx, record.WorkItemID, 0); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict retrying pending job, got %v", err)
	}
}
