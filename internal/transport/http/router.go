package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"kpicli/internal/middleware"
)

// RouterConfig carries the dependencies the router wires together.
type RouterConfig struct {
	Health     *HealthHandler
	Indicators *IndicatorHandler
	Operations *OperationsHandler
	Metrics    http.Handler
	Logger     *slog.Logger
	APITimeout time.Duration
}

// NewRouter assembles the API router with the standard middleware chain.
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.SecurityHeaders)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.Timeout(cfg.APITimeout))

		r.Get("/health", cfg.Health.HealthCheck)
		r.Get("/health/live", cfg.Health.LivenessCheck)
		r.Get("/health/ready", cfg.Health.ReadinessCheck)
		r.Get("/version", cfg.Health.VersionInfo)

		r.Get("/indicators/{day}", cfg.Indicators.GetDay)
		r.Post("/indicators/{day}/{field}", cfg.Indicators.SubmitField)

		r.Post("/operations/collect", cfg.Operations.Collect)
	})

	// Outside the API middleware group, scrape-friendly.
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	return r
}
