package infrastructure

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveUpsert("done")
	m.ObserveUpsert("done")
	m.ObserveUpsert("failed")
	m.ObserveSkippedField()
	m.ObserveRun("collect", "done")
	m.MarkSuccess(1756339200)

	assert.InDelta(t, 2, testutil.ToFloat64(m.UpsertsTotal.WithLabelValues("done")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UpsertsTotal.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FieldsSkipped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CollectionRuns.WithLabelValues("collect", "done")), 0)
	assert.InDelta(t, 1756339200, testutil.ToFloat64(m.LastSuccessEpoch), 0)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.ObserveUpsert("done")
		m.ObserveSkippedField()
		m.ObserveRun("collect", "failed")
		m.MarkSuccess(0)
	})
}
