package sources

import (
	"net/url"
	"sort"
	"strings"
)

// Profile describes how to extract the target artifact from pages hosted on a
// family of domains. Selectors are ordered most-specific to least; the first
// one that yields substantial text wins.
type Profile struct {
	Key            string
	DomainSuffixes []string
	Selectors      []string
}

// GenericKey identifies the fallback profile applied to unknown domains.
const GenericKey = "generic"

// builtinProfiles covers the transcript aggregators and common article layouts
// the pipeline has historically seen. Adding a source means adding a profile
// here (or registering one at startup), not another domain branch in the
// extraction code.
var builtinProfiles = []Profile{
	{
		Key:            "podscribe",
		DomainSuffixes: []string{"podscribe.app", "app.podscribe.ai"},
		Selectors:      []string{"div.transcript-content", "div[class*='transcript']"},
	},
	{
		Key:            "happyscribe",
		DomainSuffixes: []string{"happyscribe.com"},
		Selectors:      []string{"section.transcript", "div.transcript-text", "main"},
	},
	{
		Key:            "podgist",
		DomainSuffixes: []string{"podgist.com"},
		Selectors:      []string{"div.interview", "div.transcript"},
	},
	{
		Key:            "rev",
		DomainSuffixes: []string{"rev.com"},
		Selectors:      []string{"div.fl-callout-text", "div[class*='transcript']"},
	},
	{
		Key:            "steno",
		DomainSuffixes: []string{"steno.fm"},
		Selectors:      []string{"div.episode-transcript", "main"},
	},
}

// genericProfile applies to unknown hosts: semantic article containers first,
// cleaned body as a last resort.
var genericProfile = Profile{
	Key:       GenericKey,
	Selectors: []string{"article", "main", "div[itemprop='articleBody']", "div.post-content", "div.entry-content", "body"},
}

// Registry resolves hosts to extraction profiles. Built once at startup.
type Registry struct {
	bySuffix map[string]Profile
	suffixes []string
	generic  Profile
}

// NewRegistry builds a registry from the builtin profiles plus any extras.
// Extra profiles win over builtins on suffix collisions.
func NewRegistry(extras ...Profile) *Registry {
	r := &Registry{
		bySuffix: make(map[string]Profile),
		generic:  genericProfile,
	}
	for _, profile := range builtinProfiles {
		r.register(profile)
	}
	for _, profile := range extras {
		r.register(profile)
	}
	sort.Slice(r.suffixes, func(i, j int) bool {
		return len(r.suffixes[i]) > len(r.suffixes[j])
	})
	return r
}

func (r *Registry) register(profile Profile) {
	for _, suffix := range profile.DomainSuffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if _, exists := r.bySuffix[suffix]; !exists {
			r.suffixes = append(r.suffixes, suffix)
		}
		r.bySuffix[suffix] = profile
	}
}

// Resolve maps a host to its profile, falling back to the generic profile for
// unknown domains. Matching is by longest domain suffix, so a profile for
// "example.com" also covers "www.example.com".
func (r *Registry) Resolve(host string) Profile {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, suffix := range r.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return r.bySuffix[suffix]
		}
	}
	return r.generic
}

// Generic returns the fallback profile.
func (r *Registry) Generic() Profile {
	return r.generic
}

// HostOf extracts the lowercase host from a raw URL, without port.
func HostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
