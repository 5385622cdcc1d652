// Package ledger persists per-work-item processing state in SQLite and
// enforces the at-most-one-in-flight guarantee.
//
// Every transition out of Pending or InProgress is a compare-and-set on
// (work_item_id, status, lease_token); losing the compare-and-set yields
// ErrConflict, which callers treat as "someone else owns this item". Terminal
// records are never deleted, so re-submissions of already-processed work items
// short-circuit against the existing record.
package ledger
