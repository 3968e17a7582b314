// Package testutil provides shared test helpers, mainly log capture for
// asserting on structured log output.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log record.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that buffers records for assertions.
type LogCapture struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewTestLogger creates a logger whose output is captured for assertions.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogCapture) {
	t.Helper()
	capture := &LogCapture{}
	return slog.New(capture), capture
}

// Handle implements slog.Handler.
func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// Enabled implements slog.Handler. Everything is captured.
func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

// WithAttrs implements slog.Handler. Attrs set on derived loggers are not
// tracked; assertions target per-record attrs.
func (c *LogCapture) WithAttrs([]slog.Attr) slog.Handler { return c }

// WithGroup implements slog.Handler.
func (c *LogCapture) WithGroup(string) slog.Handler { return c }

// Records returns a copy of all captured records.
func (c *LogCapture) Records() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogRecord, len(c.records))
	copy(out, c.records)
	return out
}

// ContainsMessage reports whether any record's message contains the
// substring at the given level.
func (c *LogCapture) ContainsMessage(level slog.Level, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.Level == level && strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries the attribute.
func (c *LogCapture) ContainsAttr(key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// AssertLogContains fails the test when no record at the level contains
// the message.
func AssertLogContains(t *testing.T, capture *LogCapture, level slog.Level, message string) {
	t.Helper()
	if capture.ContainsMessage(level, message) {
		return
	}
	t.Errorf("expected log message at %s containing %q", level, message)
	for _, r := range capture.Records() {
		t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
	}
}

// AssertNoErrors fails the test when any error-level record was captured.
func AssertNoErrors(t *testing.T, capture *LogCapture) {
	t.Helper()
	for _, r := range capture.Records() {
		if r.Level == slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
