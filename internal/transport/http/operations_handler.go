package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	apierrors "kpicli/internal/errors"
	"kpicli/internal/indicator"
	"kpicli/internal/scraper"
)

// CollectTrigger starts a collection run without waiting for it.
type CollectTrigger interface {
	StartAsync(dayID string) error
}

// OperationsHandler serves the manual collection trigger.
type OperationsHandler struct {
	trigger CollectTrigger
	logger  *slog.Logger
	now     func() time.Time
}

// NewOperationsHandler creates a new operations handler.
func NewOperationsHandler(trigger CollectTrigger, logger *slog.Logger) *OperationsHandler {
	return &OperationsHandler{
		trigger: trigger,
		logger:  logger.With(slog.String("handler", "operations")),
		now:     time.Now,
	}
}

// CollectRequest optionally names the day to collect. Empty means
// yesterday, the normal collection target.
type CollectRequest struct {
	DayID string `json:"day_id"`
}

// Collect handles POST /api/operations/collect
func (h *OperationsHandler) Collect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}

	dayID := req.DayID
	if dayID == "" {
		dayID = indicator.Yesterday(h.now())
	}
	if !indicator.ValidDayID(dayID) {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInvalidDayID))
		return
	}

	if err := h.trigger.StartAsync(dayID); err != nil {
		if errors.Is(err, scraper.ErrRunInProgress) {
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrCollectionRunning))
			return
		}
		h.logger.ErrorContext(r.Context(), "collection trigger failed",
			slog.String("day_id", dayID),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}

	h.logger.InfoContext(r.Context(), "collection run triggered", slog.String("day_id", dayID))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]any{"success": true, "day_id": dayID, "status": "started"})
}
