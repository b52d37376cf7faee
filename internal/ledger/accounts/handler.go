package accounts

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

// Handler exposes the chart-of-accounts API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/tree", h.tree)
	r.Get("/system/{subType}", h.systemAccount)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
	r.Post("/provision-defaults", h.provisionDefaults)
}

type createAccountRequest struct {
	Code               string  `json:"code" validate:"required,max=32"`
	Name               string  `json:"name" validate:"required,max=255"`
	Type               string  `json:"type" validate:"required"`
	SubType            string  `json:"sub_type"`
	ParentID           *int64  `json:"parent_id"`
	OpeningBalance     *string `json:"opening_balance"`
	OpeningBalanceDate *string `json:"opening_balance_date"`
}

type accountResponse struct {
	ID                 int64      `json:"id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Type               string     `json:"type"`
	SubType            string     `json:"sub_type,omitempty"`
	ParentID           *int64     `json:"parent_id,omitempty"`
	IsActive           bool       `json:"is_active"`
	IsSystem           bool       `json:"is_system"`
	OpeningBalance     string     `json:"opening_balance"`
	OpeningBalanceDate *time.Time `json:"opening_balance_date,omitempty"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:                 a.ID,
		Code:               a.Code,
		Name:               a.Name,
		Type:               string(a.Type),
		SubType:            string(a.SubType),
		ParentID:           a.ParentID,
		IsActive:           a.IsActive,
		IsSystem:           a.IsSystem,
		OpeningBalance:     a.OpeningBalance.StringFixed(2),
		OpeningBalanceDate: a.OpeningBalanceDate,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}

	in := CreateInput{
		TenantID: shared.TenantFromContext(r.Context()),
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		SubType:  AccountSubType(req.SubType),
		ParentID: req.ParentID,
	}
	if req.OpeningBalance != nil {
		amount, err := decimal.NewFromString(*req.OpeningBalance)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "opening_balance is not a valid amount")
			return
		}
		in.OpeningBalance = amount
	}
	if req.OpeningBalanceDate != nil {
		date, err := parseDate(*req.OpeningBalanceDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "opening_balance_date must be YYYY-MM-DD")
			return
		}
		in.OpeningBalanceDate = &date
	}

	account, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

type updateAccountRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	SubType     *string `json:"sub_type"`
	ParentID    *int64  `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
	IsActive    *bool   `json:"is_active"`
	Code        *string `json:"code"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}

	in := UpdateInput{
		Name:        req.Name,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
		IsActive:    req.IsActive,
		Code:        req.Code,
	}
	if req.SubType != nil {
		subType := AccountSubType(*req.SubType)
		in.SubType = &subType
	}

	account, err := h.service.Update(r.Context(), shared.TenantFromContext(r.Context()), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), shared.TenantFromContext(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	account, err := h.service.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type treeNodeResponse struct {
	accountResponse
	Children []treeNodeResponse `json:"children"`
}

func toTreeResponse(nodes []*TreeNode) []treeNodeResponse {
	out := make([]treeNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, treeNodeResponse{
			accountResponse: toAccountResponse(n.Account),
			Children:        toTreeResponse(n.Children),
		})
	}
	return out
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.Tree(r.Context(), shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTreeResponse(nodes))
}

func (h *Handler) systemAccount(w http.ResponseWriter, r *http.Request) {
	subType := AccountSubType(chi.URLParam(r, "subType"))
	account, err := h.service.GetSystemAccount(r.Context(), shared.TenantFromContext(r.Context()), subType)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) provisionDefaults(w http.ResponseWriter, r *http.Request) {
	tenant := shared.TenantFromContext(r.Context())
	created, err := h.service.ProvisionDefaultChart(r.Context(), tenant)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("default chart provisioned",
		slog.String("tenant", tenant.String()),
		slog.Int("created", len(created)))
	out := make([]accountResponse, 0, len(created))
	for _, a := range created {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid account id")
		return 0, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
