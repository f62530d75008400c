package fraud

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bank/meridian/internal/platform/httpx"
)

// AlertService defines the review contract consumed by the HTTP layer.
type AlertService interface {
	AlertsByStatus(ctx context.Context, status AlertStatus) ([]Alert, error)
	UpdateStatus(ctx context.Context, id int64, status AlertStatus) (Alert, error)
}

// Handler serves the alert review endpoints.
type Handler struct {
	logger  *slog.Logger
	service AlertService
}

// NewHandler constructs an alerts HTTP handler.
func NewHandler(logger *slog.Logger, service AlertService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches alert routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/{id}/status", h.handleUpdateStatus)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := AlertStatusPending
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status = AlertStatus(strings.ToUpper(raw))
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid status", "status must be one of PENDING, REVIEWED, DISMISSED, ESCALATED")
			return
		}
	}
	alerts, err := h.service.AlertsByStatus(r.Context(), status)
	if err != nil {
		h.logger.Error("list alerts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid alert id", "alert id must be a positive integer")
		return
	}
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	status := AlertStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	alert, err := h.service.UpdateStatus(r.Context(), id, status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			httpx.Problem(w, http.StatusBadRequest, "Invalid status", err.Error())
		case errors.Is(err, ErrAlertNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
		case errors.Is(err, ErrIllegalTransition):
			httpx.Problem(w, http.StatusConflict, "Alert already reviewed", err.Error())
		default:
			h.logger.Error("update alert status", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal server error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, alert)
}
