package ingest_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpicli/internal/indicator"
	"kpicli/internal/ingest"
	"kpicli/internal/shared/testutil"
	"kpicli/internal/store"
)

// failingStore simulates a store whose retries are already exhausted.
type failingStore struct {
	calls int
}

func (f *failingStore) Upsert(context.Context, *indicator.Record) (store.UpsertResult, error) {
	f.calls++
	return store.UpsertResult{}, errors.New("upsert failed after 3 attempts: connection refused")
}

func (f *failingStore) Get(context.Context, string) (map[string]any, error) {
	return nil, store.ErrDayNotFound
}

func (f *failingStore) Ping(context.Context) error { return errors.New("unreachable") }

func TestRecordFieldEndToEnd(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := ingest.New(mem, nil, nil)

	require.True(t, svc.RecordField(ctx, "20250813", "conn15Rate", "92.30%"))

	row, err := mem.Get(ctx, "20250813")
	require.NoError(t, err)
	assert.Equal(t, 92.3, row["conn15Rate"])

	// A later submission for the same day extends the row without touching
	// the earlier column.
	require.True(t, svc.RecordField(ctx, "20250813", "onceRate", "77.10%"))

	row, err = mem.Get(ctx, "20250813")
	require.NoError(t, err)
	assert.Equal(t, 92.3, row["conn15Rate"])
	assert.Equal(t, 77.1, row["onceRate"])
}

func TestRecordFieldIntegerKind(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := ingest.New(mem, nil, nil)

	require.True(t, svc.RecordField(ctx, "20250813", "artCallinCt", "1523.0"))

	row, err := mem.Get(ctx, "20250813")
	require.NoError(t, err)
	assert.Equal(t, int64(1523), row["artCallinCt"])
}

func TestRecordFieldAbsentValue(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := ingest.New(mem, nil, nil)

	assert.False(t, svc.RecordField(ctx, "20250813", "conn15Rate", nil))
	assert.False(t, svc.RecordField(ctx, "20250813", "conn15Rate", "—"))
	assert.False(t, svc.RecordField(ctx, "20250813", "artCallinCt", ""))

	// Nothing reached the store.
	assert.Equal(t, 0, mem.Len())
}

func TestRecordFieldUnknownField(t *testing.T) {
	svc := ingest.New(store.NewMemory(), nil, nil)
	assert.False(t, svc.RecordField(context.Background(), "20250813", "bogusField", "1"))
}

func TestRecordFieldBadDayID(t *testing.T) {
	svc := ingest.New(store.NewMemory(), nil, nil)
	assert.False(t, svc.RecordField(context.Background(), "2025-08-13", "conn15Rate", "92.30%"))
}

func TestRecordFieldStoreFailureDoesNotPropagate(t *testing.T) {
	fs := &failingStore{}
	svc := ingest.New(fs, nil, nil)

	ok := svc.RecordField(context.Background(), "20250813", "conn15Rate", "92.30%")
	assert.False(t, ok)
	assert.Equal(t, 1, fs.calls)
}

func TestRecordBatchFirstWins(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := ingest.New(mem, nil, nil)

	sourceA := map[string]any{"conn15Rate": "90.00%", "artCallinCt": nil}
	sourceB := map[string]any{"conn15Rate": "10.00%", "artCallinCt": "1523", "onceRate": "77.10%"}

	rec := svc.RecordBatch(ctx, "20250813", sourceA, sourceB)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.Len())

	row, err := mem.Get(ctx, "20250813")
	require.NoError(t, err)
	// Source A supplied conn15Rate first, so source B does not override it;
	// A's absent artCallinCt leaves the slot open for B.
	assert.Equal(t, 90.0, row["conn15Rate"])
	assert.Equal(t, int64(1523), row["artCallinCt"])
	assert.Equal(t, 77.1, row["onceRate"])
}

func TestRecordBatchEmptyMerge(t *testing.T) {
	mem := store.NewMemory()
	svc := ingest.New(mem, nil, nil)

	rec := svc.RecordBatch(context.Background(), "20250813",
		map[string]any{"conn15Rate": nil, "onceRate": "n/a"})
	assert.Nil(t, rec)
	assert.Equal(t, 0, mem.Len())
}

func TestRecordBatchStoreFailure(t *testing.T) {
	svc := ingest.New(&failingStore{}, nil, nil)

	rec := svc.RecordBatch(context.Background(), "20250813",
		map[string]any{"conn15Rate": "92.30%"})
	assert.Nil(t, rec)
}

func TestRecordBatchSingleWideUpsert(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := ingest.New(mem, nil, nil)

	rec := svc.RecordBatch(ctx, "20250813", map[string]any{
		"conn15Rate":  "92.30%",
		"onceRate":    "77.10%",
		"artCallinCt": "1523",
		"wanselfcnt":  "20041",
	})
	require.NotNil(t, rec)
	assert.Equal(t, 4, rec.Len())
	assert.Equal(t, 1, mem.Len())
}

func TestRecordFieldLogsStoreFailure(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	svc := ingest.New(&failingStore{}, logger, nil)

	ok := svc.RecordField(context.Background(), "20250620", "conn15Rate", "50.00%")
	require.False(t, ok)
	testutil.AssertLogContains(t, capture, slog.LevelError, "field not persisted")
	assert.True(t, capture.ContainsAttr("field", "conn15Rate"))
}

func TestRecordFieldAbsentValueLogsWarning(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	svc := ingest.New(store.NewMemory(), logger, nil)

	ok := svc.RecordField(context.Background(), "20250620", "onceRate", nil)
	require.False(t, ok)
	testutil.AssertLogContains(t, capture, slog.LevelWarn, "value absent after normalization")
	testutil.AssertNoErrors(t, capture)
}
