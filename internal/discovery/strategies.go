package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scribe/internal/sources"
	"scribe/internal/workitem"
)

// Strategy produces candidate URLs for a work item. Strategies are tried in
// registration order; a strategy that errors or times out is skipped, never
// fatal to the work item.
type Strategy interface {
	Name() string
	ProduceCandidates(ctx context.Context, item workitem.WorkItem) ([]Candidate, error)
}

// directStrategy proposes the work item's own locator URL. For articles the
// canonical URL is the primary hypothesis; for episodes the show-notes page
// sometimes embeds the transcript.
type directStrategy struct{}

func (directStrategy) Name() string { return string(MethodDirect) }

func (directStrategy) ProduceCandidates(_ context.Context, item workitem.WorkItem) ([]Candidate, error) {
	target := item.Locator.URL
	if item.Kind == workitem.KindPodcastEpisode {
		target = item.Locator.EpisodeURL
	}
	if strings.TrimSpace(target) == "" {
		return nil, nil
	}
	return []Candidate{{
		SourceDomain: sources.HostOf(target),
		URL:          target,
		Method:       MethodDirect,
	}}, nil
}

// siteSearchStrategy runs provider queries scoped to the curated aggregator
// allow-list. Tried early because these domains carry the highest historical
// transcript yield.
type siteSearchStrategy struct {
	provider   SearchProvider
	domains    []string
	maxResults int
}

func (siteSearchStrategy) Name() string { return string(MethodSiteSearch) }

func (s siteSearchStrategy) Backend() string { return s.provider.Name() }

func (s siteSearchStrategy) ProduceCandidates(ctx context.Context, item workitem.WorkItem) ([]Candidate, error) {
	terms := searchTerms(item)
	if terms == "" {
		return nil, nil
	}

	var candidates []Candidate
	for _, domain := range s.domains {
		results, err := s.provider.Query(ctx, fmt.Sprintf("site:%s %s", domain, terms), s.maxResults)
		if err != nil {
			return candidates, err
		}
		for _, result := range results {
			host := sources.HostOf(result.URL)
			if host == "" || !(host == domain || strings.HasSuffix(host, "."+domain)) {
				continue
			}
			candidates = append(candidates, Candidate{
				SourceDomain: host,
				URL:          result.URL,
				Method:       MethodSiteSearch,
			})
		}
	}
	return candidates, nil
}

// webSearchStrategy runs broad provider queries through the configured
// templates.
type webSearchStrategy struct {
	provider   SearchProvider
	templates  []string
	maxResults int
}

func (webSearchStrategy) Name() string { return string(MethodWebSearch) }

func (s webSearchStrategy) Backend() string { return s.provider.Name() }

func (s webSearchStrategy) ProduceCandidates(ctx context.Context, item workitem.WorkItem) ([]Candidate, error) {
	primary, secondary := queryParts(item)
	if primary == "" {
		return nil, nil
	}

	var candidates []Candidate
	for _, template := range s.templates {
		query := fmt.Sprintf(template, primary, secondary)
		results, err := s.provider.Query(ctx, query, s.maxResults)
		if err != nil {
			return candidates, err
		}
		for _, result := range results {
			host := sources.HostOf(result.URL)
			if host == "" {
				continue
			}
			candidates = append(candidates, Candidate{
				SourceDomain: host,
				URL:          result.URL,
				Method:       MethodWebSearch,
			})
		}
	}
	return candidates, nil
}

// captionPlatforms hosts publish caption or transcript metadata alongside the
// media itself, so their episode URLs are worth trying even when search finds
// nothing.
var captionPlatforms = []string{"youtube.com", "youtu.be", "vimeo.com"}

// platformStrategy matches episode URLs against known caption platforms.
type platformStrategy struct{}

func (platformStrategy) Name() string { return string(MethodPlatform) }

func (platformStrategy) ProduceCandidates(_ context.Context, item workitem.WorkItem) ([]Candidate, error) {
	if item.Kind != workitem.KindPodcastEpisode {
		return nil, nil
	}
	host := sources.HostOf(item.Locator.EpisodeURL)
	if host == "" {
		return nil, nil
	}
	for _, platform := range captionPlatforms {
		if host == platform || strings.HasSuffix(host, "."+platform) {
			return []Candidate{{
				SourceDomain: host,
				URL:          item.Locator.EpisodeURL,
				Method:       MethodPlatform,
			}}, nil
		}
	}
	return nil, nil
}

var slugSeparators = regexp.MustCompile(`[-_/.+]+`)

var titleCaser = cases.Title(language.English)

// searchTerms builds the free-text portion of a scoped query.
func searchTerms(item workitem.WorkItem) string {
	primary, secondary := queryParts(item)
	return strings.TrimSpace(primary + " " + secondary)
}

// queryParts returns the two template placeholders: the item's title and a
// secondary descriptor. Articles fall back to slug words from the URL path.
func queryParts(item workitem.WorkItem) (string, string) {
	switch item.Kind {
	case workitem.KindPodcastEpisode:
		return strings.TrimSpace(item.Locator.EpisodeTitle), titleCaser.String(strings.TrimSpace(item.Locator.PodcastName))
	default:
		host := sources.HostOf(item.Locator.URL)
		slug := slugWords(item.Locator.URL)
		return slug, host
	}
}

func slugWords(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	path := rawURL
	if idx >= 0 {
		path = rawURL[idx+3:]
	}
	if slash := strings.Index(path, "/"); slash >= 0 {
		path = path[slash+1:]
	} else {
		path = ""
	}
	if q := strings.IndexAny(path, "?#"); q >= 0 {
		path = path[:q]
	}
	words := slugSeparators.Split(path, -1)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.TrimSpace(word)
		if len(word) > 1 {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}
