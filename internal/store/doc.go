// Package store provides SQLite-backed storage for RTE sessions.
//
// The store plays two collaborator roles for the engine:
//   - rte.SessionRegistry: session registration, snapshot persistence and
//     learner lookup
//   - rte.TelemetrySink: the API call audit log, data model change log and
//     broadcast log
//
// # Tables
//
//   - sessions: one row per Initialize, closed by Terminate
//   - snapshots: every persisted commit, payload in canonical JSON
//   - api_calls, data_model_changes, broadcasts: append-only telemetry
//
// All reads order by the seq column, never by timestamp, so results are
// stable even when a fake clock stamps many rows with the same instant.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
