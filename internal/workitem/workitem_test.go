package workitem_test

import (
	"testing"

	"scribe/internal/workitem"
)

func TestNewArticleDerivesStableID(t *testing.T) {
	a, err := workitem.NewArticle("https://example.com/a", 0)
	if err != nil {
		t.Fatalf("NewArticle failed: %v", err)
	}
	b, err := workitem.NewArticle("https://EXAMPLE.com/a", 5)
	if err != nil {
		t.Fatalf("NewArticle failed: %v", err)
	}
	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("expected identical IDs for same locator, got %q and %q", a.ID, b.ID)
	}
}

func TestNewArticleRequiresURL(t *testing.T) {
	if _, err := workitem.NewArticle("  ", 0); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewPodcastEpisode(t *testing.T) {
	item, err := workitem.NewPodcastEpisode("Hard Fork", "The AI Election", "https://pods.example/ep1", 1)
	if err != nil {
		t.Fatalf("NewPodcastEpisode failed: %v", err)
	}
	if item.Kind != workitem.KindPodcastEpisode {
		t.Fatalf("unexpected kind %q", item.Kind)
	}
	if item.Title() != "Hard Fork — The AI Election" {
		t.Fatalf("unexpected title %q", item.Title())
	}

	if _, err := workitem.NewPodcastEpisode("", "Episode", "", 0); err == nil {
		t.Fatal("expected validation error without podcast name")
	}
}

func TestDeriveIDDistinguishesKinds(t *testing.T) {
	loc := workitem.Locator{URL: "https://example.com/a"}
	if workitem.DeriveID(workitem.KindArticle, loc) == workitem.DeriveID(workitem.KindPodcastEpisode, loc) {
		t.Fatal("expected different IDs per kind")
	}
}

func TestParseKind(t *testing.T) {
	if kind, ok := workitem.ParseKind(" Article "); !ok || kind != workitem.KindArticle {
		t.Fatalf("ParseKind article failed: %q %v", kind, ok)
	}
	if _, ok := workitem.ParseKind("video"); ok {
		t.Fatal("expected unknown kind to fail")
	}
}
