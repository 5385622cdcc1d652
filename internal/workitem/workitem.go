package workitem

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies what artifact a work item asks for.
type Kind string

const (
	KindArticle        Kind = "article"
	KindPodcastEpisode Kind = "podcast_episode"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindArticle:
		return KindArticle, true
	case KindPodcastEpisode:
		return KindPodcastEpisode, true
	default:
		return "", false
	}
}

// Locator identifies the content a work item refers to. Articles carry URL;
// podcast episodes carry PodcastName and EpisodeTitle, optionally EpisodeURL.
type Locator struct {
	URL          string `json:"url,omitempty"`
	PodcastName  string `json:"podcast_name,omitempty"`
	EpisodeTitle string `json:"episode_title,omitempty"`
	EpisodeURL   string `json:"episode_url,omitempty"`
}

// WorkItem is one unit of content to locate and extract. Immutable once
// created; the pipeline only reads it.
type WorkItem struct {
	ID       string
	Kind     Kind
	Locator  Locator
	Priority int
}

// NewArticle builds a validated article work item with a derived ID.
func NewArticle(url string, priority int) (WorkItem, error) {
	item := WorkItem{
		Kind:     KindArticle,
		Locator:  Locator{URL: strings.TrimSpace(url)},
		Priority: priority,
	}
	if err := item.Validate(); err != nil {
		return WorkItem{}, err
	}
	item.ID = DeriveID(item.Kind, item.Locator)
	return item, nil
}

// NewPodcastEpisode builds a validated episode work item with a derived ID.
func NewPodcastEpisode(podcastName, episodeTitle, episodeURL string, priority int) (WorkItem, error) {
	item := WorkItem{
		Kind: KindPodcastEpisode,
		Locator: Locator{
			PodcastName:  strings.TrimSpace(podcastName),
			EpisodeTitle: strings.TrimSpace(episodeTitle),
			EpisodeURL:   strings.TrimSpace(episodeURL),
		},
		Priority: priority,
	}
	if err := item.Validate(); err != nil {
		return WorkItem{}, err
	}
	item.ID = DeriveID(item.Kind, item.Locator)
	return item, nil
}

// Validate checks that the locator carries what the kind requires.
func (w WorkItem) Validate() error {
	switch w.Kind {
	case KindArticle:
		if w.Locator.URL == "" {
			return errors.New("article work item requires a url")
		}
	case KindPodcastEpisode:
		if w.Locator.PodcastName == "" || w.Locator.EpisodeTitle == "" {
			return errors.New("podcast episode work item requires podcast name and episode title")
		}
	default:
		return fmt.Errorf("unknown work item kind %q", w.Kind)
	}
	return nil
}

// Title returns the human-facing label for logs and notifications.
func (w WorkItem) Title() string {
	switch w.Kind {
	case KindPodcastEpisode:
		return fmt.Sprintf("%s — %s", w.Locator.PodcastName, w.Locator.EpisodeTitle)
	default:
		return w.Locator.URL
	}
}

// DeriveID computes a stable identifier from the canonical locator. The same
// locator always maps to the same ID, which is what makes the ledger's
// idempotency key meaningful across runs and submitters.
func DeriveID(kind Kind, loc Locator) string {
	canonical := strings.Join([]string{
		string(kind),
		strings.ToLower(loc.URL),
		strings.ToLower(loc.PodcastName),
		strings.ToLower(loc.EpisodeTitle),
	}, "\x1f")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:16])
}
