package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scribe/internal/services"
)

// SearchResult is one hit from a search backend.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"content"`
}

// SearchProvider is a pluggable search backend. Implementations must return
// services.ErrQuotaExceeded-tagged errors on rate limiting so the engine can
// bench them for the remainder of the run.
type SearchProvider interface {
	Name() string
	Query(ctx context.Context, text string, maxResults int) ([]SearchResult, error)
}

// HTTPSearchProvider queries a SearxNG-compatible JSON search endpoint.
type HTTPSearchProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSearchProvider wires a search client. Returns nil when no base URL is
// configured, which callers treat as "strategy unavailable".
func NewHTTPSearchProvider(baseURL, apiKey string, timeout time.Duration) *HTTPSearchProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSearchProvider{
		name:    "searx",
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPSearchProvider) Name() string {
	return p.name
}

type searxResponse struct {
	Results []SearchResult `json:"results"`
}

// Query runs one search and returns up to maxResults hits.
func (p *HTTPSearchProvider) Query(ctx context.Context, text string, maxResults int) ([]SearchResult, error) {
	endpoint := p.baseURL + "/search?" + url.Values{
		"q":      []string{text},
		"format": []string{"json"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "discovery", "query", "build request", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientNetwork, "discovery", "query", "search request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrQuotaExceeded, "discovery", "query", "backend returned 429", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrTransientNetwork, "discovery", "query", "status "+strconv.Itoa(resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, services.Wrap(services.ErrTransientNetwork, "discovery", "query", "read response", err)
	}

	var parsed searxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := parsed.Results
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}
