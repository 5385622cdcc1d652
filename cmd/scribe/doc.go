// Command scribe is the operator CLI: it enqueues work items, inspects the
// job ledger, and requeues failed jobs. It shares the SQLite ledger with a
// running scribed through WAL mode, so most commands work whether or not the
// daemon is up.
package main
