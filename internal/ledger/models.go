package ledger

import (
	"strings"
	"time"

	"scribe/internal/workitem"
)

// Status represents the lifecycle of a job record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends processing for the item.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AcceptedCandidate records the provenance of the candidate that produced the
// accepted artifact. Only the winner is persisted; rejected candidates are
// ephemeral.
type AcceptedCandidate struct {
	SourceDomain string `json:"source_domain"`
	URL          string `json:"url"`
	Method       string `json:"method"`
	Rank         int    `json:"rank"`
}

// JobRecord is the durable per-work-item state. Exactly one record exists per
// work item ID; terminal records are retained for idempotency checks and
// audit, never deleted.
type JobRecord struct {
	ID            int64
	WorkItemID    string
	Kind          workitem.Kind
	Locator       workitem.Locator
	Priority      int
	Status        Status
	Attempts      int
	Accepted      *AcceptedCandidate
	TextRef       string
	LastError     string
	LeaseToken    string
	LastHeartbeat *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WorkItem reconstructs the immutable work item this record tracks.
func (r *JobRecord) WorkItem() workitem.WorkItem {
	return workitem.WorkItem{
		ID:       r.WorkItemID,
		Kind:     r.Kind,
		Locator:  r.Locator,
		Priority: r.Priority,
	}
}

// Stats aggregates ledger counts for the operational surface.
type Stats struct {
	Pending     int
	InProgress  int
	Completed   int
	Failed      int
	SuccessRate float64
}

// Total returns the number of jobs ever enqueued.
func (s Stats) Total() int {
	return s.Pending + s.InProgress + s.Completed + s.Failed
}
