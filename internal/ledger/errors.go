package ledger

import "errors"

var (
	// ErrConflict is returned when a compare-and-set transition loses: the
	// job is already claimed, released, or otherwise not in the expected
	// state. Callers abandon the item silently; another worker owns it.
	ErrConflict = errors.New("ledger conflict")

	// ErrTerminalConflict is returned when a commit observes an existing
	// terminal state for the same work item. Two terminal commits for one ID
	// indicate a correctness bug, so this surfaces as a hard failure instead
	// of being swallowed like ErrConflict.
	ErrTerminalConflict = errors.New("ledger terminal conflict")

	// ErrNotFound is returned when no job exists for a work item ID.
	ErrNotFound = errors.New("job not found")

	// ErrRetryCooldown is returned when a failed job is retried before the
	// configured cooldown has elapsed.
	ErrRetryCooldown = errors.New("retry cooldown active")
)
