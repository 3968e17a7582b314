package store

import (
	"context"

	"kpicli/internal/indicator"
)

// DefaultTable is the day-keyed indicator table.
const DefaultTable = "central_indicator_monitor_data"

// UpsertResult reports how an upsert split into inserts and updates. The
// split is informational only; it never gates the write.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// Store is the persistence boundary for indicator records. Upsert writes
// exactly the columns present in the record: fields omitted from the record
// are left untouched on conflict, never overwritten with NULL.
type Store interface {
	// Upsert inserts or updates the record's day row. Implementations must
	// be idempotent: re-running with identical contents is a no-op update.
	Upsert(ctx context.Context, rec *indicator.Record) (UpsertResult, error)

	// Get returns the stored row for a day keyed by column name, or
	// ErrDayNotFound.
	Get(ctx context.Context, dayID string) (map[string]any, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
