package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"scribe/internal/workitem"
)

const jobColumns = "id, work_item_id, kind, locator_json, priority, status, attempts, accepted_json, text_ref, last_error, lease_token, last_heartbeat, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*JobRecord, error) {
	var (
		id           int64
		workItemID   string
		kind         string
		locatorJSON  string
		priority     int
		statusStr    string
		attempts     int
		acceptedJSON sql.NullString
		textRef      sql.NullString
		lastError    sql.NullString
		leaseToken   sql.NullString
		heartbeatRaw sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&workItemID,
		&kind,
		&locatorJSON,
		&priority,
		&statusStr,
		&attempts,
		&acceptedJSON,
		&textRef,
		&lastError,
		&leaseToken,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &JobRecord{
		ID:         id,
		WorkItemID: workItemID,
		Kind:       workitem.Kind(kind),
		Priority:   priority,
		Status:     Status(statusStr),
		Attempts:   attempts,
		TextRef:    textRef.String,
		LastError:  lastError.String,
		LeaseToken: leaseToken.String,
	}

	if err := json.Unmarshal([]byte(locatorJSON), &record.Locator); err != nil {
		return nil, fmt.Errorf("decode locator for %s: %w", workItemID, err)
	}
	if acceptedJSON.Valid && acceptedJSON.String != "" {
		accepted := &AcceptedCandidate{}
		if err := json.Unmarshal([]byte(acceptedJSON.String), accepted); err != nil {
			return nil, fmt.Errorf("decode accepted candidate for %s: %w", workItemID, err)
		}
		record.Accepted = accepted
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			record.LastHeartbeat = &heartbeat
		}
	}
	return record, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
