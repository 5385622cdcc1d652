// Package discovery turns a work item into an ordered, deduplicated sequence
// of candidate source URLs.
//
// Strategies run in confidence order: the item's own locator, site-scoped
// search over the curated aggregator allow-list, broad web search through
// configured query templates, and finally caption-platform matching. The
// candidate stream is lazy, so cheap early candidates short-circuit expensive
// search calls when they pass the quality bar.
package discovery
