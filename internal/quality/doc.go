// Package quality grades extracted text against the configured acceptance
// thresholds. The scorer is pure: no I/O, no clock, identical input always
// yields an identical verdict.
package quality
