package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"kpicli/internal/ingest"
	"kpicli/internal/store"
)

type stubPortal struct {
	name   string
	values map[string]any
	err    error
	panics bool

	mu    sync.Mutex
	calls int
}

func (p *stubPortal) Name() string { return p.name }

func (p *stubPortal) Collect(ctx context.Context, dayID string) (map[string]any, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.panics {
		panic("portal blew up")
	}
	return p.values, p.err
}

func newTestRunner(t *testing.T, st store.Store, portals ...Portal) *Runner {
	t.Helper()
	r := NewRunner(nil, ingest.New(st, nil, nil), nil, nil, portals...)
	r.limiter = rate.NewLimiter(rate.Inf, 1)
	return r
}

func TestRunMergesPortalsFirstWins(t *testing.T) {
	mem := store.NewMemory()
	first := &stubPortal{name: "call_center", values: map[string]any{
		"artCallinCt": "12345",
		"conn15Rate":  "92.30%",
	}}
	second := &stubPortal{name: "order_monitor", values: map[string]any{
		"conn15Rate": "1.00%", // loses to the earlier portal
		"ordersolve": "88.10%",
	}}

	r := newTestRunner(t, mem, first, second)
	rec, err := r.Run(context.Background(), "20250620")
	require.NoError(t, err)
	require.NotNil(t, rec)

	row, err := mem.Get(context.Background(), "20250620")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), row["artCallinCt"])
	assert.Equal(t, 92.3, row["conn15Rate"])
	assert.Equal(t, 88.1, row["ordersolve"])
}

func TestRunRecordsTextServiceFields(t *testing.T) {
	mem := store.NewMemory()
	im := &stubPortal{name: "im", values: map[string]any{
		"wordCallinCt":   "20471",
		"word5Rate":      "96.40%",
		"farCabinetCt":   "312",
		"farCabinetRate": "89.75%",
	}}

	r := newTestRunner(t, mem, im)
	rec, err := r.Run(context.Background(), "20250620")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 4, rec.Len())

	row, err := mem.Get(context.Background(), "20250620")
	require.NoError(t, err)
	assert.Equal(t, "20471", row["wordCallinCt"])
	assert.Equal(t, 96.4, row["word5Rate"])
	assert.Equal(t, "312", row["farCabinetCt"])
	assert.Equal(t, 89.75, row["farCabinetRate"])
}

func TestRunPortalFailureIsolated(t *testing.T) {
	mem := store.NewMemory()
	broken := &stubPortal{name: "call_center", err: errors.New("portal down")}
	healthy := &stubPortal{name: "intelligent", values: map[string]any{
		"intelligentCus": "41.20%",
	}}

	r := newTestRunner(t, mem, broken, healthy)
	rec, err := r.Run(context.Background(), "20250620")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 1, healthy.calls)
	row, err := mem.Get(context.Background(), "20250620")
	require.NoError(t, err)
	assert.Equal(t, 41.2, row["intelligentCus"])
}

func TestRunPortalPanicIsolated(t *testing.T) {
	mem := store.NewMemory()
	panicky := &stubPortal{name: "call_center", panics: true}
	healthy := &stubPortal{name: "intelligent", values: map[string]any{
		"intelligentRgRate": "12.50%",
	}}

	r := newTestRunner(t, mem, panicky, healthy)
	rec, err := r.Run(context.Background(), "20250620")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Len())
}

func TestRunAllPortalsEmpty(t *testing.T) {
	mem := store.NewMemory()
	empty := &stubPortal{name: "call_center", values: map[string]any{}}

	r := newTestRunner(t, mem, empty)
	rec, err := r.Run(context.Background(), "20250620")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 0, mem.Len())
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	mem := store.NewMemory()
	release := make(chan struct{})
	slow := &blockingPortal{release: release, started: make(chan struct{})}

	r := newTestRunner(t, mem, slow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Run(context.Background(), "20250620")
	}()

	<-slow.started
	_, err := r.Run(context.Background(), "20250620")
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	<-done
}

type blockingPortal struct {
	release <-chan struct{}
	started chan struct{}
}

func (p *blockingPortal) Name() string { return "slow" }

func (p *blockingPortal) Collect(ctx context.Context, dayID string) (map[string]any, error) {
	close(p.started)
	<-p.release
	return nil, nil
}
