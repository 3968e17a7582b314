package scraper

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"kpicli/internal/indicator"
	"kpicli/internal/infrastructure"
)

// ErrRunInProgress is returned when a collection run is requested while a
// previous one is still going.
var ErrRunInProgress = errors.New("collection run already in progress")

// Ingestor is the slice of the ingestion service the runner needs.
type Ingestor interface {
	RecordBatch(ctx context.Context, dayID string, sources ...map[string]any) *indicator.Record
}

// Runner executes one collection batch: every portal in order, the raw
// values merged first-wins and written as a single record. One portal
// failing never aborts the others.
type Runner struct {
	browser *Browser
	portals []Portal
	ingest  Ingestor
	logger  *slog.Logger
	metrics *infrastructure.Metrics
	limiter *rate.Limiter

	mu      sync.Mutex
	running bool
}

// NewRunner creates a runner over the given portals. Portals run in the
// order given; earlier portals win merge conflicts.
func NewRunner(browser *Browser, ingest Ingestor, logger *slog.Logger, metrics *infrastructure.Metrics, portals ...Portal) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		browser: browser,
		portals: portals,
		ingest:  ingest,
		logger:  logger.With(slog.String("component", "runner")),
		metrics: metrics,
		// Pace portal visits so the portals never see back-to-back sessions.
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Run collects the given day from every portal and submits the merged
// batch. Only one run executes at a time; concurrent calls get
// ErrRunInProgress.
func (r *Runner) Run(ctx context.Context, dayID string) (*indicator.Record, error) {
	if !r.claim() {
		return nil, ErrRunInProgress
	}
	defer r.release()
	return r.run(ctx, dayID)
}

// StartAsync begins a collection run in the background, for the manual
// HTTP trigger. The busy check happens before this returns.
func (r *Runner) StartAsync(dayID string) error {
	if !r.claim() {
		return ErrRunInProgress
	}
	go func() {
		defer r.release()
		if _, err := r.run(context.Background(), dayID); err != nil {
			r.logger.Error("triggered collection run failed",
				slog.String("day_id", dayID),
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (r *Runner) claim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context, dayID string) (*indicator.Record, error) {
	ctx = infrastructure.WithTraceID(ctx, uuid.NewString())
	if r.browser != nil {
		browserCtx, cancel := r.browser.NewContext(ctx)
		defer cancel()
		ctx = browserCtx
	}

	r.logger.InfoContext(ctx, "collection run starting",
		slog.String("day_id", dayID),
		slog.Int("portals", len(r.portals)))

	var sources []map[string]any
	for _, portal := range r.portals {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		values := r.collectPortal(ctx, portal, dayID)
		if len(values) > 0 {
			sources = append(sources, values)
		}
	}

	rec := r.ingest.RecordBatch(ctx, dayID, sources...)
	if rec == nil {
		r.metrics.ObserveRun("collect", "skipped")
		r.logger.WarnContext(ctx, "collection run produced no record",
			slog.String("day_id", dayID))
		return nil, nil
	}

	r.metrics.ObserveRun("collect", "done")
	r.metrics.MarkSuccess(float64(time.Now().Unix()))
	r.logger.InfoContext(ctx, "collection run complete",
		slog.String("day_id", dayID),
		slog.Int("fields", rec.Len()))
	return rec, nil
}

// collectPortal runs one portal with failure and panic isolation.
func (r *Runner) collectPortal(ctx context.Context, portal Portal, dayID string) (values map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "portal panicked",
				slog.String("portal", portal.Name()),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			values = nil
		}
	}()

	start := time.Now()
	values, err := portal.Collect(ctx, dayID)
	if err != nil {
		r.logger.ErrorContext(ctx, "portal collection failed",
			slog.String("portal", portal.Name()),
			slog.String("error", err.Error()))
		return nil
	}
	r.logger.InfoContext(ctx, "portal collected",
		slog.String("portal", portal.Name()),
		slog.Int("fields", len(values)),
		slog.Duration("duration", time.Since(start)))
	return values
}
