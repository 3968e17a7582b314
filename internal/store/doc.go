// Package store persists assembled indicator records into the day-keyed
// monitor table.
//
// The Postgres implementation deliberately opens a fresh connection per
// upsert call instead of pooling. Collection cycles are hours apart and the
// network between the collector and the database is flaky; a connection
// that only exists for the duration of one statement can never go stale.
package store
