package extraction

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/sources"
)

// Result is the output of extracting one candidate.
type Result struct {
	Text       string
	CharLength int
	Method     string
}

// Engine fetches candidate pages and isolates the target artifact text.
// Dispatch is by source domain through the registry; unknown domains get the
// generic selector chain.
type Engine struct {
	fetcher       *Fetcher
	registry      *sources.Registry
	archive       *ArchiveClient
	minLiveLength int
	logger        *slog.Logger
}

// NewEngine builds the extraction engine from config.
func NewEngine(cfg *config.Config, registry *sources.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Extraction.FetchTimeout) * time.Second

	var archive *ArchiveClient
	if cfg.Extraction.ArchiveEnabled {
		archive = NewArchiveClient(cfg.Extraction.ArchiveBaseURL, timeout)
	}

	return &Engine{
		fetcher:       NewFetcher(timeout, cfg.Extraction.UserAgent, cfg.Extraction.MaxResponseBytes),
		registry:      registry,
		archive:       archive,
		minLiveLength: cfg.Extraction.MinLiveLength,
		logger:        logger,
	}
}

// Extract resolves the candidate's strategy chain: structural selectors on the
// live page, a transcript/full-text link hop, and finally an archive snapshot
// when the live fetch failed or stayed under the minimum useful length. The
// best text seen wins; an empty outcome is a parse error, not a crash.
func (e *Engine) Extract(ctx context.Context, candidate discovery.Candidate) (Result, error) {
	profile := e.registry.Resolve(candidate.SourceDomain)

	best := Result{}
	doc, liveErr := e.fetchDocument(ctx, candidate.URL)
	if liveErr == nil {
		if text, selector := e.applySelectors(doc, profile); text != "" {
			best = Result{Text: text, CharLength: len(text), Method: "selector:" + profile.Key + ":" + selector}
		}
		if best.CharLength >= e.minLiveLength {
			return best, nil
		}
		if followed, err := e.followTranscriptLink(ctx, doc, candidate.URL, profile); err == nil && followed.CharLength > best.CharLength {
			best = followed
			if best.CharLength >= e.minLiveLength {
				return best, nil
			}
		}
	}

	if snapshot, err := e.extractFromArchive(ctx, candidate.URL, profile); err == nil && snapshot.CharLength > best.CharLength {
		best = snapshot
	}

	if best.CharLength > 0 {
		return best, nil
	}
	if liveErr != nil {
		return Result{}, liveErr
	}
	return Result{}, services.Wrap(services.ErrParse, "extraction", "extract", "no text found in "+candidate.URL, nil)
}

func (e *Engine) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "extraction", "extract", "parse html", err)
	}
	return doc, nil
}

// applySelectors walks the profile's chain most-specific first and returns the
// first substantial match, degrading to the whole document's text.
func (e *Engine) applySelectors(doc *goquery.Document, profile sources.Profile) (string, string) {
	for _, selector := range profile.Selectors {
		text := textOf(doc.Find(selector).First())
		if len(text) >= 80 {
			return text, selector
		}
	}
	if text := CollapseWhitespace(doc.Text()); text != "" {
		return text, "document"
	}
	return "", ""
}

var transcriptLinkPattern = regexp.MustCompile(`(?i)\b(full\s+)?(transcript|full\s+text)\b`)

// followTranscriptLink looks for an explicit transcript/full-text link on the
// already-fetched page and extracts from its target. One hop only; the linked
// page never recurses further.
func (e *Engine) followTranscriptLink(ctx context.Context, doc *goquery.Document, pageURL string, profile sources.Profile) (Result, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Result{}, services.Wrap(services.ErrParse, "extraction", "extract", "parse page url", err)
	}

	var target string
	doc.Find("a[href]").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		label := strings.TrimSpace(anchor.Text())
		if !transcriptLinkPattern.MatchString(label) {
			return true
		}
		href, _ := anchor.Attr("href")
		resolved, resolveErr := base.Parse(href)
		if resolveErr != nil {
			return true
		}
		if resolved.String() == pageURL {
			return true
		}
		target = resolved.String()
		return false
	})
	if target == "" {
		return Result{}, services.Wrap(services.ErrParse, "extraction", "extract", "no transcript link", nil)
	}

	e.logger.Debug("following transcript link",
		logging.String("from", pageURL),
		logging.String("to", target),
	)

	linked, err := e.fetchDocument(ctx, target)
	if err != nil {
		return Result{}, err
	}
	text, _ := e.applySelectors(linked, profile)
	if text == "" {
		return Result{}, services.Wrap(services.ErrParse, "extraction", "extract", "transcript link yielded no text", nil)
	}
	return Result{Text: text, CharLength: len(text), Method: "transcript_link"}, nil
}

func (e *Engine) extractFromArchive(ctx context.Context, pageURL string, profile sources.Profile) (Result, error) {
	if e.archive == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "extraction", "archive", "disabled", nil)
	}
	snapshots, err := e.archive.Snapshots(ctx, pageURL)
	if err != nil {
		return Result{}, err
	}
	if len(snapshots) == 0 {
		return Result{}, services.Wrap(services.ErrParse, "extraction", "archive", "no snapshot for "+pageURL, nil)
	}

	for _, snapshot := range snapshots {
		doc, err := e.fetchDocument(ctx, snapshot)
		if err != nil {
			continue
		}
		if text, _ := e.applySelectors(doc, profile); text != "" {
			return Result{Text: text, CharLength: len(text), Method: "archive"}, nil
		}
	}
	return Result{}, services.Wrap(services.ErrParse, "extraction", "archive", "snapshots yielded no text", nil)
}
