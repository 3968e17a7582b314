package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collector's Prometheus instruments. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	UpsertsTotal     *prometheus.CounterVec
	FieldsSkipped    prometheus.Counter
	CollectionRuns   *prometheus.CounterVec
	LastSuccessEpoch prometheus.Gauge
}

// NewMetrics creates and registers the collector metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpsertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kpi",
			Subsystem: "store",
			Name:      "upserts_total",
			Help:      "Indicator upserts by outcome.",
		}, []string{"outcome"}),
		FieldsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kpi",
			Subsystem: "ingest",
			Name:      "fields_skipped_total",
			Help:      "Fields skipped because the scraped value was absent or unusable.",
		}),
		CollectionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kpi",
			Subsystem: "collector",
			Name:      "runs_total",
			Help:      "Collection runs by job and outcome.",
		}, []string{"job", "outcome"}),
		LastSuccessEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kpi",
			Subsystem: "collector",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful collection run.",
		}),
	}
	reg.MustRegister(m.UpsertsTotal, m.FieldsSkipped, m.CollectionRuns, m.LastSuccessEpoch)
	return m
}

// ObserveUpsert records one upsert outcome.
func (m *Metrics) ObserveUpsert(outcome string) {
	if m == nil {
		return
	}
	m.UpsertsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSkippedField records one skipped field.
func (m *Metrics) ObserveSkippedField() {
	if m == nil {
		return
	}
	m.FieldsSkipped.Inc()
}

// ObserveRun records one collection run outcome.
func (m *Metrics) ObserveRun(job, outcome string) {
	if m == nil {
		return
	}
	m.CollectionRuns.WithLabelValues(job, outcome).Inc()
}

// MarkSuccess stamps the last-success gauge.
func (m *Metrics) MarkSuccess(epoch float64) {
	if m == nil {
		return
	}
	m.LastSuccessEpoch.Set(epoch)
}
