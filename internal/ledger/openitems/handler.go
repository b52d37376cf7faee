package openitems

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/platform/httpx"
	"github.com/granary-books/granary/internal/shared"
)

// Handler exposes the open-item maintenance API the invoice, bill, and
// payment modules call to keep the aging projection current.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validate}
}

// MountRoutes registers open-item routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.upsert)
	r.Post("/{id}/payments", h.applyPayment)
}

type upsertOpenItemRequest struct {
	Kind           string `json:"kind" validate:"required,oneof=RECEIVABLE PAYABLE"`
	PartyID        int64  `json:"party_id" validate:"required"`
	PartyName      string `json:"party_name" validate:"required,max=255"`
	DocumentNumber string `json:"document_number" validate:"required,max=64"`
	IssueDate      string `json:"issue_date" validate:"required"`
	DueDate        string `json:"due_date" validate:"required"`
	Total          string `json:"total" validate:"required"`
	AmountDue      string `json:"amount_due" validate:"required"`
}

type openItemResponse struct {
	ID             int64     `json:"id"`
	Kind           string    `json:"kind"`
	PartyID        int64     `json:"party_id"`
	PartyName      string    `json:"party_name"`
	DocumentNumber string    `json:"document_number"`
	IssueDate      time.Time `json:"issue_date"`
	DueDate        time.Time `json:"due_date"`
	Total          string    `json:"total"`
	AmountDue      string    `json:"amount_due"`
	Status         string    `json:"status"`
}

func toOpenItemResponse(item OpenItem) openItemResponse {
	return openItemResponse{
		ID:             item.ID,
		Kind:           string(item.Kind),
		PartyID:        item.PartyID,
		PartyName:      item.PartyName,
		DocumentNumber: item.DocumentNumber,
		IssueDate:      item.IssueDate,
		DueDate:        item.DueDate,
		Total:          item.Total.StringFixed(2),
		AmountDue:      item.AmountDue.StringFixed(2),
		Status:         string(item.Status),
	}
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertOpenItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}

	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "issue_date must be YYYY-MM-DD")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "due_date must be YYYY-MM-DD")
		return
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "total is not a valid amount")
		return
	}
	amountDue, err := decimal.NewFromString(req.AmountDue)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "amount_due is not a valid amount")
		return
	}
	if amountDue.IsNegative() || total.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "amounts must not be negative")
		return
	}

	item := OpenItem{
		TenantID:       shared.TenantFromContext(r.Context()),
		Kind:           Kind(req.Kind),
		PartyID:        req.PartyID,
		PartyName:      req.PartyName,
		DocumentNumber: req.DocumentNumber,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Total:          total,
		AmountDue:      amountDue,
		Status:         StatusOpen,
	}
	saved, err := h.repo.Upsert(r.Context(), item)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("open item upserted",
		slog.String("document", saved.DocumentNumber),
		slog.String("kind", string(saved.Kind)))
	httpx.JSON(w, http.StatusOK, toOpenItemResponse(saved))
}

type applyPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "id must be an integer")
		return
	}
	var req applyPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "amount must be a positive decimal")
		return
	}

	tenant := shared.TenantFromContext(r.Context())
	if err := h.repo.ApplyPayment(r.Context(), tenant, id, amount); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
