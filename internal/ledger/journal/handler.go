package journal

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/platform/httpx"
	"github.com/granary-books/granary/internal/shared"
)

// Handler exposes the journal entry API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.post)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/void", h.void)
	r.Post("/{id}/reverse", h.reverse)
}

type lineRequest struct {
	AccountID  int64  `json:"account_id" validate:"required"`
	Debit      string `json:"debit"`
	Credit     string `json:"credit"`
	CustomerID *int64 `json:"customer_id"`
	VendorID   *int64 `json:"vendor_id"`
}

type postEntryRequest struct {
	Date      string        `json:"date" validate:"required"`
	Source    string        `json:"source"`
	SourceID  *uuid.UUID    `json:"source_id"`
	Memo      string        `json:"memo" validate:"max=1000"`
	Reference string        `json:"reference" validate:"max=255"`
	Lines     []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type lineResponse struct {
	ID         int64  `json:"id"`
	AccountID  int64  `json:"account_id"`
	Debit      string `json:"debit"`
	Credit     string `json:"credit"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	VendorID   *int64 `json:"vendor_id,omitempty"`
}

type entryResponse struct {
	ID              int64          `json:"id"`
	EntryNumber     int64          `json:"entry_number"`
	Date            string         `json:"date"`
	Source          string         `json:"source"`
	SourceID        *uuid.UUID     `json:"source_id,omitempty"`
	IsPosted        bool           `json:"is_posted"`
	IsReversing     bool           `json:"is_reversing"`
	ReversedEntryID *int64         `json:"reversed_entry_id,omitempty"`
	Memo            string         `json:"memo,omitempty"`
	Reference       string         `json:"reference,omitempty"`
	Lines           []lineResponse `json:"lines,omitempty"`
}

func toEntryResponse(e Entry) entryResponse {
	resp := entryResponse{
		ID:              e.ID,
		EntryNumber:     e.EntryNumber,
		Date:            e.Date.Format("2006-01-02"),
		Source:          string(e.Source),
		SourceID:        e.SourceID,
		IsPosted:        e.IsPosted,
		IsReversing:     e.IsReversing,
		ReversedEntryID: e.ReversedEntryID,
		Memo:            e.Memo,
		Reference:       e.Reference,
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:         l.ID,
			AccountID:  l.AccountID,
			Debit:      l.Debit.StringFixed(2),
			Credit:     l.Credit.StringFixed(2),
			CustomerID: l.CustomerID,
			VendorID:   l.VendorID,
		})
	}
	return resp
}

func parseLines(reqs []lineRequest) ([]LineInput, error) {
	lines := make([]LineInput, 0, len(reqs))
	for _, lr := range reqs {
		line := LineInput{AccountID: lr.AccountID, CustomerID: lr.CustomerID, VendorID: lr.VendorID}
		var err error
		if line.Debit, err = parseAmount(lr.Debit); err != nil {
			return nil, err
		}
		if line.Credit, err = parseAmount(lr.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "date must be YYYY-MM-DD")
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "line amounts must be valid decimals")
		return
	}

	source := Source(req.Source)
	if req.Source == "" {
		source = SourceManual
	}
	entry, err := h.service.Post(r.Context(), PostingInput{
		TenantID:  shared.TenantFromContext(r.Context()),
		Date:      date,
		Source:    source,
		SourceID:  req.SourceID,
		Memo:      req.Memo,
		Reference: req.Reference,
		Lines:     lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

type updateEntryRequest struct {
	Date      *string       `json:"date"`
	Memo      *string       `json:"memo" validate:"omitempty,max=1000"`
	Reference *string       `json:"reference" validate:"omitempty,max=255"`
	Lines     []lineRequest `json:"lines" validate:"omitempty,min=2,dive"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}

	in := UpdateInput{Memo: req.Memo, Reference: req.Reference}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "date must be YYYY-MM-DD")
			return
		}
		in.Date = &date
	}
	if req.Lines != nil {
		lines, err := parseLines(req.Lines)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "line amounts must be valid decimals")
			return
		}
		in.Lines = lines
	}

	entry, err := h.service.Update(r.Context(), shared.TenantFromContext(r.Context()), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.Void(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

type reverseEntryRequest struct {
	Date *string `json:"date"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req reverseEntryRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed JSON body")
			return
		}
	}
	var reverseDate *time.Time
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "date must be YYYY-MM-DD")
			return
		}
		reverseDate = &date
	}

	entry, err := h.service.Reverse(r.Context(), shared.TenantFromContext(r.Context()), id, reverseDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid entry id")
		return 0, false
	}
	return id, true
}
