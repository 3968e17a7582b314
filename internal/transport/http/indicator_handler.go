package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "kpicli/internal/errors"
	"kpicli/internal/indicator"
	"kpicli/internal/store"
)

// IngestService is the slice of the ingestion service the API needs.
type IngestService interface {
	RecordField(ctx context.Context, dayID, field string, raw any) bool
	Get(ctx context.Context, dayID string) (map[string]any, error)
}

// IndicatorHandler serves read access to collected day records and manual
// single-field submission.
type IndicatorHandler struct {
	ingest   IngestService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewIndicatorHandler creates a new indicator handler.
func NewIndicatorHandler(ingest IngestService, logger *slog.Logger) *IndicatorHandler {
	return &IndicatorHandler{
		ingest:   ingest,
		logger:   logger.With(slog.String("handler", "indicators")),
		validate: validator.New(),
	}
}

// GetDay handles GET /api/indicators/{day}
func (h *IndicatorHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	dayID := chi.URLParam(r, "day")
	if !indicator.ValidDayID(dayID) {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInvalidDayID))
		return
	}

	row, err := h.ingest.Get(r.Context(), dayID)
	if err != nil {
		if errors.Is(err, store.ErrDayNotFound) {
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrDayNotFound))
			return
		}
		h.logger.ErrorContext(r.Context(), "day record read failed",
			slog.String("day_id", dayID),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}
	render.JSON(w, r, map[string]any{"success": true, "record": row})
}

// SubmitRequest is the manual single-field submission body.
type SubmitRequest struct {
	Value any `json:"value" validate:"required"`
}

// SubmitField handles POST /api/indicators/{day}/{field}
func (h *IndicatorHandler) SubmitField(w http.ResponseWriter, r *http.Request) {
	dayID := chi.URLParam(r, "day")
	field := chi.URLParam(r, "field")

	if !indicator.ValidDayID(dayID) {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInvalidDayID))
		return
	}
	if _, ok := indicator.KindOf(field); !ok {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.UnknownFieldError(field)))
		return
	}

	var req SubmitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrValidation("value", "value is required")))
		return
	}

	outcome := "done"
	if !h.ingest.RecordField(r.Context(), dayID, field, req.Value) {
		outcome = "skipped"
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"day_id":  dayID,
		"field":   field,
		"outcome": outcome,
	})
}
