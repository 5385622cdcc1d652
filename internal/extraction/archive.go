package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scribe/internal/services"
)

// ArchiveClient looks up historical snapshots of a URL in a wayback-style
// availability API. Used as a last resort when the live fetch fails or returns
// too little content.
type ArchiveClient struct {
	baseURL string
	client  *http.Client
}

// NewArchiveClient wires a snapshot lookup client. Returns nil when disabled.
func NewArchiveClient(baseURL string, timeout time.Duration) *ArchiveClient {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ArchiveClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type availabilityResponse struct {
	ArchivedSnapshots struct {
		Closest struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// Snapshots returns snapshot URLs for a page, newest first. An empty slice
// means no snapshot exists; that is not an error.
func (a *ArchiveClient) Snapshots(ctx context.Context, pageURL string) ([]string, error) {
	endpoint := a.baseURL + "?" + url.Values{"url": []string{pageURL}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extraction", "archive", "build request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientNetwork, "extraction", "archive", "availability request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransientNetwork, "extraction", "archive", "status "+strconv.Itoa(resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, services.Wrap(services.ErrTransientNetwork, "extraction", "archive", "read response", err)
	}

	var parsed availabilityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrParse, "extraction", "archive", "decode response", err)
	}

	closest := parsed.ArchivedSnapshots.Closest
	if !closest.Available || closest.URL == "" {
		return nil, nil
	}
	// Snapshots served over http redirect to https; rewrite up front.
	snapshot := strings.Replace(closest.URL, "http://", "https://", 1)
	return []string{snapshot}, nil
}
