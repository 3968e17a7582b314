package store

import (
	"context"
	"sync"

	"kpicli/internal/indicator"
)

// Memory is an in-memory Store with the same column-granularity upsert
// semantics as Postgres. It backs tests and the DB-less development mode.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]map[string]any
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string]map[string]any)}
}

// Upsert merges the record into the day's row, touching only the columns
// present in the record.
func (m *Memory) Upsert(_ context.Context, rec *indicator.Record) (UpsertResult, error) {
	if rec == nil || rec.Len() == 0 {
		return UpsertResult{}, ErrEmptyRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, exists := m.rows[rec.DayID()]
	if !exists {
		row = map[string]any{indicator.DayIDColumn: rec.DayID()}
		m.rows[rec.DayID()] = row
	}
	for _, field := range rec.Fields() {
		v, _ := rec.Value(field)
		row[field] = v.Arg()
	}

	if exists {
		return UpsertResult{Updated: 1}, nil
	}
	return UpsertResult{Inserted: 1}, nil
}

// Get returns a copy of the stored row for the day.
func (m *Memory) Get(_ context.Context, dayID string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[dayID]
	if !ok {
		return nil, ErrDayNotFound
	}
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Len returns the number of day rows held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
