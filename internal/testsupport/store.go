package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/ledger"
	"scribe/internal/workitem"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueArticle creates and enqueues an article work item for tests.
func EnqueueArticle(t testing.TB, store *ledger.Store, url string) *ledger.JobRecord {
	t.Helper()

	item, err := workitem.NewArticle(url, 0)
	if err != nil {
		t.Fatalf("workitem.NewArticle: %v", err)
	}
	record, err := store.Enqueue(context.Background(), item)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return record
}

// EnqueueEpisode creates and enqueues a podcast episode work item for tests.
func EnqueueEpisode(t testing.TB, store *ledger.Store, podcast, episode string) *ledger.JobRecord {
	t.Helper()

	item, err := workitem.NewPodcastEpisode(podcast, episode, "", 0)
	if err != nil {
		t.Fatalf("workitem.NewPodcastEpisode: %v", err)
	}
	record, err := store.Enqueue(context.Background(), item)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return record
}
