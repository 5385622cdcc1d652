// Package pipeline orchestrates work items through discovery, extraction,
// scoring, and the ledger commit. The orchestrator settles one claimed job at
// a time; the manager runs the worker pool and reclaims stranded claims.
package pipeline
