// Package extraction turns discovered candidate URLs into artifact text. It
// fetches pages with bounded bodies, applies per-source selector chains, and
// degrades through a transcript-link hop and archive snapshots before giving
// up on a candidate.
package extraction
