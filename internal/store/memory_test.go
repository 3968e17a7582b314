package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpicli/internal/indicator"
	"kpicli/internal/store"
)

func mustAssemble(t *testing.T, dayID string, values map[string]indicator.Value) *indicator.Record {
	t.Helper()
	rec := indicator.Assemble(dayID, values)
	require.NotNil(t, rec)
	return rec
}

func TestMemoryUpsertInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	res, err := m.Upsert(ctx, mustAssemble(t, "20250813", map[string]indicator.Value{
		"conn15Rate": indicator.Percent(92.3),
	}))
	require.NoError(t, err)
	assert.Equal(t, store.UpsertResult{Inserted: 1}, res)

	res, err = m.Upsert(ctx, mustAssemble(t, "20250813", map[string]indicator.Value{
		"onceRate": indicator.Percent(77.1),
	}))
	require.NoError(t, err)
	assert.Equal(t, store.UpsertResult{Updated: 1}, res)

	row, err := m.Get(ctx, "20250813")
	require.NoError(t, err)
	assert.Equal(t, "20250813", row[indicator.DayIDColumn])
	assert.Equal(t, 92.3, row["conn15Rate"])
	assert.Equal(t, 77.1, row["onceRate"])
}

func TestMemoryPartialUpdatePreservesSiblingColumns(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.Upsert(ctx, mustAssemble(t, "20250813", map[string]indicator.Value{
		"artCallinCt": indicator.Count(1),
		"conn15Rate":  indicator.Percent(2),
	}))
	require.NoError(t, err)

	_, err = m.Upsert(ctx, mustAssemble(t, "20250813", map[string]indicator.Value{
		"onceRate": indicator.Percent(3),
	}))
	require.NoError(t, err)

	row, err := m.Get(ctx, "20250813")
	require.NoError(t, err)
	assert.Equal(t, int64(1), row["artCallinCt"])
	assert.Equal(t, 2.0, row["conn15Rate"])
	assert.Equal(t, 3.0, row["onceRate"])
}

func TestMemoryUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	rec := mustAssemble(t, "20250813", map[string]indicator.Value{
		"artCallinCt": indicator.Count(1523),
	})

	_, err := m.Upsert(ctx, rec)
	require.NoError(t, err)
	before, err := m.Get(ctx, "20250813")
	require.NoError(t, err)

	_, err = m.Upsert(ctx, rec)
	require.NoError(t, err)
	after, err := m.Get(ctx, "20250813")
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryLastWriteWinsPerColumn(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.Upsert(ctx, mustAssemble(t, "20250813", map[string]indicator.Value{
		"conn15Rate": indicator.Percent(90),
	}))
	require.NoError(t, err)

	_, err = m.Upsert(ctx, mustAssemble(t, "20250813", map[string]indicator.Value{
		"conn15Rate": indicator.Percent(92.3),
	}))
	require.NoError(t, err)

	row, err := m.Get(ctx, "20250813")
	require.NoError(t, err)
	assert.Equal(t, 92.3, row["conn15Rate"])
}

func TestMemoryGetUnknownDay(t *testing.T) {
	m := store.NewMemory()
	_, err := m.Get(context.Background(), "19700101")
	assert.ErrorIs(t, err, store.ErrDayNotFound)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.Upsert(ctx, mustAssemble(t, "20250813", map[string]indicator.Value{
		"onceRate": indicator.Percent(77.1),
	}))
	require.NoError(t, err)

	row, err := m.Get(ctx, "20250813")
	require.NoError(t, err)
	row["onceRate"] = 0.0

	again, err := m.Get(ctx, "20250813")
	require.NoError(t, err)
	assert.Equal(t, 77.1, again["onceRate"])
}
