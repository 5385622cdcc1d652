// Package services defines the shared error taxonomy for external-world
// failures. Discovery and extraction tag errors with these sentinels so the
// orchestrator can decide between retrying, abandoning a candidate, or
// benching a backend without inspecting message strings.
package services
