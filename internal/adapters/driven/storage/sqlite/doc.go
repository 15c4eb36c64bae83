// Package sqlite provides a SQLite-backed mirror of the request metrics log
// and the feedback log.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database connection serves:
//
//   - MetricsStore: request metrics (driven.MetricsSink and driven.MetricsReader)
//   - FeedbackStore: answer ratings (driven.FeedbackStore)
//
// The JSONL logs stay the persisted contract for dashboards; this store adds
// indexed queries for `docqa metrics summary` and the HTTP summary endpoint.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory ("NNN_name.up.sql"). Applied versions are recorded
// in schema_migrations.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
