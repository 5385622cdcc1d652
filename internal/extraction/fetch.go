package extraction

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"scribe/internal/services"
)

// Fetcher retrieves candidate pages with bounded response sizes and a single
// retry for transient transport failures.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFetcher wires an HTTP client for page retrieval.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch retrieves a URL. Transport failures (timeout, connection reset) are
// retried exactly once; 4xx responses are permanent for the candidate and
// never retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.fetchOnce(ctx, rawURL)
	if err != nil && services.IsTransient(err) && isTransportError(err) {
		if ctx.Err() != nil {
			return nil, err
		}
		body, err = f.fetchOnce(ctx, rawURL)
	}
	return body, err
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanentFetch, "extraction", "fetch", "build request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientNetwork, "extraction", "fetch", "request", &transportError{cause: err})
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrQuotaExceeded, "extraction", "fetch", "status 429", nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, services.Wrap(services.ErrPermanentFetch, "extraction", "fetch", "status "+strconv.Itoa(resp.StatusCode), nil)
	default:
		return nil, services.Wrap(services.ErrTransientNetwork, "extraction", "fetch", "status "+strconv.Itoa(resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransientNetwork, "extraction", "fetch", "read body", &transportError{cause: err})
	}
	return body, nil
}

// transportError marks failures that happened below HTTP status level; only
// these qualify for the single retry.
type transportError struct {
	cause error
}

func (e *transportError) Error() string { return e.cause.Error() }

func (e *transportError) Unwrap() error { return e.cause }

func isTransportError(err error) bool {
	var transport *transportError
	if errors.As(err, &transport) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
