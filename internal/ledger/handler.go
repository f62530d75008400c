package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-bank/meridian/internal/accounts"
	"github.com/meridian-bank/meridian/internal/platform/httpx"
)

// LedgerService defines the business contract consumed by the HTTP layer.
type LedgerService interface {
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (accounts.Account, Record, error)
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (accounts.Account, Record, error)
	Transfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal, description string) (Record, error)
	Reverse(ctx context.Context, recordID int64) (Record, error)
	GetRecord(ctx context.Context, recordID int64) (Record, error)
	AllRecords(ctx context.Context) ([]Record, error)
	RecordsForAccount(ctx context.Context, accountID int64) ([]Record, error)
	VerifyIntegrity(ctx context.Context) (VerificationResult, error)
}

// Handler serves the money-movement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  LedgerService
	validate *validator.Validate
}

// NewHandler constructs a ledger HTTP handler.
func NewHandler(logger *slog.Logger, service LedgerService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes attaches ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/deposits", h.handleDeposit)
	r.Post("/withdrawals", h.handleWithdrawal)
	r.Post("/transfers", h.handleTransfer)
	r.Post("/records/{id}/reverse", h.handleReverse)
	r.Get("/records", h.handleListRecords)
	r.Get("/records/{id}", h.handleGetRecord)
	r.Get("/verify", h.handleVerify)
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid amount", "amount must be a positive number with at most 4 decimal places")
		return
	}
	account, rec, err := h.service.Deposit(r.Context(), req.AccountID, amount, strings.TrimSpace(req.Description))
	if err != nil {
		h.respondLedgerError(w, "deposit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(account, rec))
}

func (h *Handler) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid amount", "amount must be a positive number with at most 4 decimal places")
		return
	}
	account, rec, err := h.service.Withdraw(r.Context(), req.AccountID, amount, strings.TrimSpace(req.Description))
	if err != nil {
		h.respondLedgerError(w, "withdrawal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(account, rec))
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid amount", "amount must be a positive number with at most 4 decimal places")
		return
	}
	rec, err := h.service.Transfer(r.Context(), req.SourceAccountID, req.DestinationAccountID, amount, strings.TrimSpace(req.Description))
	if err != nil {
		h.respondLedgerError(w, "transfer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	recordID, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid record id", "record id must be a positive integer")
		return
	}
	rec, err := h.service.Reverse(r.Context(), recordID)
	if err != nil {
		h.respondLedgerError(w, "reverse", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid record id", "record id must be a positive integer")
		return
	}
	rec, err := h.service.GetRecord(r.Context(), recordID)
	if err != nil {
		h.respondLedgerError(w, "get record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	accountParam := strings.TrimSpace(r.URL.Query().Get("account"))
	var (
		records []Record
		err     error
	)
	if accountParam != "" {
		accountID, parseErr := strconv.ParseInt(accountParam, 10, 64)
		if parseErr != nil || accountID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid account id", "account must be a positive integer")
			return
		}
		records, err = h.service.RecordsForAccount(r.Context(), accountID)
	} else {
		records, err = h.service.AllRecords(r.Context())
	}
	if err != nil {
		h.respondLedgerError(w, "list records", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": toRecordResponses(records)})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.VerifyIntegrity(r.Context())
	if err != nil {
		h.respondLedgerError(w, "verify", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVerifyResponse(result))
}

func (h *Handler) respondLedgerError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Invalid amount", err.Error())
	case errors.Is(err, ErrSameAccount):
		httpx.Problem(w, http.StatusBadRequest, "Invalid transfer", err.Error())
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient funds", err.Error())
	case errors.Is(err, ErrAlreadyReversed), errors.Is(err, ErrReverseReversal), errors.Is(err, ErrRecordNotCompleted):
		httpx.Problem(w, http.StatusConflict, "Cannot reverse record", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
