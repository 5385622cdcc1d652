// Package daemon coordinates the long-running Scribe process.
//
// It wires configuration, the job ledger, and the pipeline manager into a
// single lifecycle with flock-based locking to prevent multiple instances, and
// serves the HTTP API used by operators and the CLI.
//
// Keep orchestration logic here: individual pipeline steps live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
