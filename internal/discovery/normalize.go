package discovery

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped during URL normalization so
// otherwise-identical candidates from different strategies dedupe.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"ref":          {},
}

// NormalizeURL canonicalizes a candidate URL for deduplication: lowercase
// scheme and host, fragment and tracking parameters dropped, trailing slash
// trimmed. Returns the empty string for unusable URLs.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	query := parsed.Query()
	for param := range query {
		if _, drop := trackingParams[strings.ToLower(param)]; drop {
			query.Del(param)
		}
	}
	parsed.RawQuery = query.Encode()

	normalized := parsed.String()
	if strings.HasSuffix(parsed.Path, "/") && parsed.Path != "/" {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}
