// Package queue persists content jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-job recovery, and the status transition
// table that defines the pipeline. Jobs carry stage artifacts as JSON columns
// so stages can coordinate without additional state.
//
// Jobs are soft-deleted: every read filters on deleted_at IS NULL and nothing
// here issues a hard DELETE against content_jobs.
//
// The pending_content table is a denormalized review-queue snapshot kept in
// step with job updates; Store.Update owns its lifecycle so callers never
// write it directly.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or artifact fields, update schema.sql and bump
// schemaVersion.
package queue
