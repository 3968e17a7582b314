package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"kpicli/internal/store"
)

// Version is stamped at build time.
var Version = "dev"

// HealthHandler handles the health probe endpoints.
type HealthHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(st store.Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:  st,
		logger: logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	dbStatus := "up"
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "store ping failed", slog.String("error", err.Error()))
		status = "degraded"
		dbStatus = "down"
	}
	render.JSON(w, r, map[string]any{
		"status":    status,
		"database":  dbStatus,
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"status": "alive"})
}

// ReadinessCheck handles GET /api/health/ready
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", slog.String("error", err.Error()))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]any{"status": "not ready", "reason": err.Error()})
		return
	}
	render.JSON(w, r, map[string]any{"status": "ready"})
}

// VersionInfo handles GET /api/version
func (h *HealthHandler) VersionInfo(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"version": Version})
}
