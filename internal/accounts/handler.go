package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-bank/meridian/internal/platform/httpx"
)

// AccountService defines the business contract consumed by the HTTP layer.
type AccountService interface {
	Open(ctx context.Context, input OpenInput) (Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	List(ctx context.Context) ([]Account, error)
}

// Handler serves account endpoints.
type Handler struct {
	logger   *slog.Logger
	service  AccountService
	validate *validator.Validate
}

// NewHandler constructs an accounts HTTP handler.
func NewHandler(logger *slog.Logger, service AccountService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes attaches account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleOpen)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

type openAccountRequest struct {
	OwnerName  string `json:"owner_name" validate:"required,max=120"`
	OwnerEmail string `json:"owner_email" validate:"required,email"`
}

type accountResponse struct {
	ID         int64  `json:"id"`
	OwnerName  string `json:"owner_name"`
	OwnerEmail string `json:"owner_email"`
	Balance    string `json:"balance"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		OwnerName:  a.OwnerName,
		OwnerEmail: a.OwnerEmail,
		Balance:    a.Balance.StringFixed(4),
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	account, err := h.service.Open(r.Context(), OpenInput{OwnerName: req.OwnerName, OwnerEmail: req.OwnerEmail})
	if err != nil {
		if errors.Is(err, ErrOwnerRequired) {
			httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}
		h.logger.Error("open account", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid account id", "account id must be a positive integer")
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
			return
		}
		h.logger.Error("get account", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	out := make([]accountResponse, len(list))
	for i, a := range list {
		out[i] = toAccountResponse(a)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}
