// Package artifacts stores accepted text on disk with atomic publish and
// write-once semantics per work item.
package artifacts
