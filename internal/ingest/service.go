// Package ingest orchestrates the normalize-assemble-persist pipeline for
// scraped indicator values. It is the boundary the scraping collaborators
// talk to: submissions are fire-and-forget, failures are logged and counted
// but never propagate upward, so one bad field can never abort a batch.
package ingest

import (
	"context"
	"log/slog"

	"kpicli/internal/indicator"
	"kpicli/internal/infrastructure"
	"kpicli/internal/store"
)

// Outcome is the terminal state of one submission.
type Outcome string

const (
	// OutcomeDone means the record was persisted.
	OutcomeDone Outcome = "done"
	// OutcomeSkipped means assembly produced nothing to persist. This is a
	// success path: many report sections legitimately have nothing new.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the store rejected the record after retries.
	OutcomeFailed Outcome = "failed"
)

// Service is the indicator ingestion service. It owns an explicit Store
// instance; nothing in this package reaches for globals.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *infrastructure.Metrics
}

// New creates an ingestion service. metrics may be nil.
func New(st store.Store, logger *slog.Logger, metrics *infrastructure.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		logger:  logger.With(slog.String("component", "ingest")),
		metrics: metrics,
	}
}

// RecordField normalizes one raw scraped value and upserts it as a
// one-field record for the day. It returns false - and only logs - when
// the value is absent, assembly yields nothing, or the store fails after
// retries. It never panics or returns an error: callers use the result for
// logging, not control flow.
func (s *Service) RecordField(ctx context.Context, dayID, field string, raw any) bool {
	log := s.logger.With(
		slog.String("day_id", dayID),
		slog.String("field", field))

	if !indicator.ValidDayID(dayID) {
		log.Error("rejecting submission with malformed day id")
		return false
	}

	value, err := indicator.Normalize(field, raw)
	if err != nil {
		log.Error("rejecting submission for unregistered field",
			slog.String("error", err.Error()))
		return false
	}
	if value.Absent() {
		// A missing or garbled scrape is expected, not exceptional.
		log.Warn("value absent after normalization, skipping",
			slog.Any("raw", raw))
		s.metrics.ObserveSkippedField()
		return false
	}

	rec := indicator.Assemble(dayID, map[string]indicator.Value{field: value})
	if rec == nil {
		log.Warn("nothing to persist after assembly")
		s.metrics.ObserveSkippedField()
		return false
	}

	if _, err := s.store.Upsert(ctx, rec); err != nil {
		log.Error("field not persisted",
			slog.String("value", value.String()),
			slog.String("error", err.Error()))
		s.metrics.ObserveUpsert(string(OutcomeFailed))
		return false
	}

	log.Info("field persisted", slog.String("value", value.String()))
	s.metrics.ObserveUpsert(string(OutcomeDone))
	return true
}

// RecordBatch normalizes every field across the given sources, merges them
// first-wins in source order, assembles one wide row for the day and
// persists it in a single upsert. It returns the persisted record, or nil
// when the merge is empty or the store fails; like RecordField it never
// raises past this boundary.
func (s *Service) RecordBatch(ctx context.Context, dayID string, sources ...map[string]any) *indicator.Record {
	log := s.logger.With(slog.String("day_id", dayID))

	if !indicator.ValidDayID(dayID) {
		log.Error("rejecting batch with malformed day id")
		return nil
	}

	normalized := make([]map[string]indicator.Value, 0, len(sources))
	for i, src := range sources {
		values := make(map[string]indicator.Value, len(src))
		for field, raw := range src {
			v, err := indicator.Normalize(field, raw)
			if err != nil {
				log.Error("dropping unregistered field from batch",
					slog.Int("source", i),
					slog.String("field", field))
				continue
			}
			if v.Absent() {
				s.metrics.ObserveSkippedField()
			}
			values[field] = v
		}
		normalized = append(normalized, values)
	}

	merged := indicator.MergeFirstWins(normalized...)
	rec := indicator.Assemble(dayID, merged)
	if rec == nil {
		log.Info("batch assembled to an empty row, nothing to persist",
			slog.Int("sources", len(sources)))
		return nil
	}

	res, err := s.store.Upsert(ctx, rec)
	if err != nil {
		log.Error("batch not persisted",
			slog.Int("fields", rec.Len()),
			slog.String("error", err.Error()))
		s.metrics.ObserveUpsert(string(OutcomeFailed))
		return nil
	}

	log.Info("batch persisted",
		slog.Int("fields", rec.Len()),
		slog.Int("inserted", res.Inserted),
		slog.Int("updated", res.Updated))
	s.metrics.ObserveUpsert(string(OutcomeDone))
	return rec
}

// Get exposes store reads to the HTTP layer without leaking the store.
func (s *Service) Get(ctx context.Context, dayID string) (map[string]any, error) {
	return s.store.Get(ctx, dayID)
}

// Ping reports store reachability for health checks.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
