package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/granary-books/granary/internal/ledger/openitems"
	"github.com/granary-books/granary/internal/platform/httpx"
	"github.com/granary-books/granary/internal/shared"
)

// Handler exposes the financial report API. All dates are YYYY-MM-DD query
// parameters and all amounts are rendered as fixed two-decimal strings.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/profit-and-loss", h.profitAndLoss)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/general-ledger", h.generalLedger)
	r.Get("/ar-aging", h.arAging)
	r.Get("/ap-aging", h.apAging)
}

const dateLayout = "2006-01-02"

func queryDate(r *http.Request, name string) (time.Time, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, true, err
	}
	return t, true, nil
}

// requireDate reads a mandatory date parameter, writing the problem
// response itself on failure.
func requireDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	t, present, err := queryDate(r, name)
	if !present || err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", name+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func optionalDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	t, present, err := queryDate(r, name)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", name+" must be YYYY-MM-DD")
		return nil, false
	}
	if !present {
		return nil, true
	}
	return &t, true
}

type trialBalanceRowDTO struct {
	AccountID int64  `json:"account_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type trialBalanceDTO struct {
	AsOf        string               `json:"as_of"`
	Rows        []trialBalanceRowDTO `json:"rows"`
	TotalDebit  string               `json:"total_debit"`
	TotalCredit string               `json:"total_credit"`
	IsBalanced  bool                 `json:"is_balanced"`
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := requireDate(w, r, "as_of")
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), shared.TenantFromContext(r.Context()), asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	dto := trialBalanceDTO{
		AsOf:        tb.AsOf.Format(dateLayout),
		Rows:        make([]trialBalanceRowDTO, 0, len(tb.Rows)),
		TotalDebit:  tb.TotalDebit.StringFixed(2),
		TotalCredit: tb.TotalCredit.StringFixed(2),
		IsBalanced:  tb.IsBalanced,
	}
	for _, row := range tb.Rows {
		dto.Rows = append(dto.Rows, trialBalanceRowDTO{
			AccountID: row.AccountID,
			Code:      row.Code,
			Name:      row.Name,
			Type:      string(row.Type),
			Debit:     row.Debit.StringFixed(2),
			Credit:    row.Credit.StringFixed(2),
		})
	}
	httpx.JSON(w, http.StatusOK, dto)
}

type plRowDTO struct {
	AccountID     int64  `json:"account_id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	CompareAmount string `json:"compare_amount,omitempty"`
}

type plSectionDTO struct {
	Label        string     `json:"label"`
	Rows         []plRowDTO `json:"rows"`
	Total        string     `json:"total"`
	CompareTotal string     `json:"compare_total,omitempty"`
}

type plDTO struct {
	Start            string       `json:"start"`
	End              string       `json:"end"`
	Comparative      bool         `json:"comparative"`
	CompareStart     string       `json:"compare_start,omitempty"`
	CompareEnd       string       `json:"compare_end,omitempty"`
	Revenue          plSectionDTO `json:"revenue"`
	Expenses         plSectionDTO `json:"expenses"`
	NetIncome        string       `json:"net_income"`
	CompareNetIncome string       `json:"compare_net_income,omitempty"`
}

func toPLSectionDTO(s ProfitAndLossSection, comparative bool) plSectionDTO {
	dto := plSectionDTO{Label: s.Label, Rows: make([]plRowDTO, 0, len(s.Rows)), Total: s.Total.StringFixed(2)}
	for _, row := range s.Rows {
		r := plRowDTO{
			AccountID: row.AccountID,
			Code:      row.Code,
			Name:      row.Name,
			Amount:    row.Amount.StringFixed(2),
		}
		if comparative {
			r.CompareAmount = row.CompareAmount.StringFixed(2)
		}
		dto.Rows = append(dto.Rows, r)
	}
	if comparative {
		dto.CompareTotal = s.CompareTotal.StringFixed(2)
	}
	return dto
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	start, ok := requireDate(w, r, "start")
	if !ok {
		return
	}
	end, ok := requireDate(w, r, "end")
	if !ok {
		return
	}
	compareStart, ok := optionalDate(w, r, "compare_start")
	if !ok {
		return
	}
	compareEnd, ok := optionalDate(w, r, "compare_end")
	if !ok {
		return
	}
	if (compareStart == nil) != (compareEnd == nil) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "compare_start and compare_end must be supplied together")
		return
	}

	pl, err := h.service.ProfitAndLoss(r.Context(), shared.TenantFromContext(r.Context()), start, end, compareStart, compareEnd)
	if err != nil {
		h.logger.Error("profit and loss", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	dto := plDTO{
		Start:       pl.Start.Format(dateLayout),
		End:         pl.End.Format(dateLayout),
		Comparative: pl.Comparative,
		Revenue:     toPLSectionDTO(pl.Revenue, pl.Comparative),
		Expenses:    toPLSectionDTO(pl.Expenses, pl.Comparative),
		NetIncome:   pl.NetIncome.StringFixed(2),
	}
	if pl.Comparative {
		dto.CompareStart = pl.CompareStart.Format(dateLayout)
		dto.CompareEnd = pl.CompareEnd.Format(dateLayout)
		dto.CompareNetIncome = pl.CompareNetIncome.StringFixed(2)
	}
	httpx.JSON(w, http.StatusOK, dto)
}

type bsRowDTO struct {
	AccountID int64  `json:"account_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Balance   string `json:"balance"`
}

type bsSectionDTO struct {
	Label string     `json:"label"`
	Rows  []bsRowDTO `json:"rows"`
	Total string     `json:"total"`
}

type bsDTO struct {
	AsOf             string       `json:"as_of"`
	Assets           bsSectionDTO `json:"assets"`
	Liabilities      bsSectionDTO `json:"liabilities"`
	Equity           bsSectionDTO `json:"equity"`
	RetainedEarnings string       `json:"retained_earnings"`
	TotalAssets      string       `json:"total_assets"`
	TotalLiabilities string       `json:"total_liabilities"`
	TotalEquity      string       `json:"total_equity"`
	IsBalanced       bool         `json:"is_balanced"`
}

func toBSSectionDTO(s BalanceSheetSection) bsSectionDTO {
	dto := bsSectionDTO{Label: s.Label, Rows: make([]bsRowDTO, 0, len(s.Rows)), Total: s.Total.StringFixed(2)}
	for _, row := range s.Rows {
		dto.Rows = append(dto.Rows, bsRowDTO{
			AccountID: row.AccountID,
			Code:      row.Code,
			Name:      row.Name,
			Balance:   row.Balance.StringFixed(2),
		})
	}
	return dto
}

func toBSDTO(bs BalanceSheet) bsDTO {
	return bsDTO{
		AsOf:             bs.AsOf.Format(dateLayout),
		Assets:           toBSSectionDTO(bs.Assets),
		Liabilities:      toBSSectionDTO(bs.Liabilities),
		Equity:           toBSSectionDTO(bs.Equity),
		RetainedEarnings: bs.RetainedEarnings.StringFixed(2),
		TotalAssets:      bs.TotalAssets.StringFixed(2),
		TotalLiabilities: bs.TotalLiabilities.StringFixed(2),
		TotalEquity:      bs.TotalEquity.StringFixed(2),
		IsBalanced:       bs.IsBalanced,
	}
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, ok := requireDate(w, r, "as_of")
	if !ok {
		return
	}
	compareAsOf, ok := optionalDate(w, r, "compare_as_of")
	if !ok {
		return
	}

	report, err := h.service.BalanceSheet(r.Context(), shared.TenantFromContext(r.Context()), asOf, compareAsOf)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := struct {
		Current bsDTO  `json:"current"`
		Compare *bsDTO `json:"compare,omitempty"`
	}{Current: toBSDTO(report.Current)}
	if report.Compare != nil {
		dto := toBSDTO(*report.Compare)
		out.Compare = &dto
	}
	httpx.JSON(w, http.StatusOK, out)
}

type glLineDTO struct {
	EntryID     int64  `json:"entry_id"`
	EntryNumber int64  `json:"entry_number"`
	Date        string `json:"date"`
	Source      string `json:"source"`
	Memo        string `json:"memo,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Running     string `json:"running_balance"`
}

type glAccountDTO struct {
	AccountID int64       `json:"account_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Opening   string      `json:"opening_balance"`
	Lines     []glLineDTO `json:"lines"`
	Closing   string      `json:"closing_balance"`
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	start, ok := requireDate(w, r, "start")
	if !ok {
		return
	}
	end, ok := requireDate(w, r, "end")
	if !ok {
		return
	}
	var accountID *int64
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid account_id")
			return
		}
		accountID = &id
	}

	gl, err := h.service.GeneralLedger(r.Context(), shared.TenantFromContext(r.Context()), start, end, accountID)
	if err != nil {
		h.logger.Error("general ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := struct {
		Start    string         `json:"start"`
		End      string         `json:"end"`
		Accounts []glAccountDTO `json:"accounts"`
	}{
		Start:    gl.Start.Format(dateLayout),
		End:      gl.End.Format(dateLayout),
		Accounts: make([]glAccountDTO, 0, len(gl.Accounts)),
	}
	for _, acc := range gl.Accounts {
		dto := glAccountDTO{
			AccountID: acc.AccountID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      string(acc.Type),
			Opening:   acc.Opening.StringFixed(2),
			Lines:     make([]glLineDTO, 0, len(acc.Lines)),
			Closing:   acc.Closing.StringFixed(2),
		}
		for _, line := range acc.Lines {
			dto.Lines = append(dto.Lines, glLineDTO{
				EntryID:     line.EntryID,
				EntryNumber: line.EntryNumber,
				Date:        line.Date.Format(dateLayout),
				Source:      string(line.Source),
				Memo:        line.Memo,
				Reference:   line.Reference,
				Debit:       line.Debit.StringFixed(2),
				Credit:      line.Credit.StringFixed(2),
				Running:     line.Running.StringFixed(2),
			})
		}
		out.Accounts = append(out.Accounts, dto)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type agingBucketDTO struct {
	Label string `json:"label"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

type agingPartyDTO struct {
	PartyID   int64    `json:"party_id"`
	PartyName string   `json:"party_name"`
	Amounts   []string `json:"amounts"`
	Total     string   `json:"total"`
}

type agingItemDTO struct {
	ItemID         int64  `json:"item_id"`
	PartyID        int64  `json:"party_id"`
	PartyName      string `json:"party_name"`
	DocumentNumber string `json:"document_number"`
	IssueDate      string `json:"issue_date"`
	DueDate        string `json:"due_date"`
	AmountDue      string `json:"amount_due"`
	DaysOverdue    int    `json:"days_overdue"`
	Bucket         string `json:"bucket"`
}

type agingDTO struct {
	Kind    string           `json:"kind"`
	AsOf    string           `json:"as_of"`
	Periods []int            `json:"periods"`
	Buckets []agingBucketDTO `json:"buckets"`
	Parties []agingPartyDTO  `json:"parties"`
	Items   []agingItemDTO   `json:"items"`
	Total   string           `json:"total"`
}

func (h *Handler) arAging(w http.ResponseWriter, r *http.Request) {
	h.aging(w, r, openitems.KindReceivable)
}

func (h *Handler) apAging(w http.ResponseWriter, r *http.Request) {
	h.aging(w, r, openitems.KindPayable)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request, kind openitems.Kind) {
	asOf, ok := requireDate(w, r, "as_of")
	if !ok {
		return
	}
	periods, err := parsePeriods(r.URL.Query().Get("periods"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "periods must be ascending positive integers")
		return
	}

	var report Aging
	if kind == openitems.KindReceivable {
		report, err = h.service.ARAging(r.Context(), shared.TenantFromContext(r.Context()), asOf, periods)
	} else {
		report, err = h.service.APAging(r.Context(), shared.TenantFromContext(r.Context()), asOf, periods)
	}
	if err != nil {
		h.logger.Error("aging", slog.String("kind", string(kind)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	dto := agingDTO{
		Kind:    string(report.Kind),
		AsOf:    report.AsOf.Format(dateLayout),
		Periods: report.Periods,
		Buckets: make([]agingBucketDTO, 0, len(report.Buckets)),
		Parties: make([]agingPartyDTO, 0, len(report.Parties)),
		Items:   make([]agingItemDTO, 0, len(report.Items)),
		Total:   report.Total.StringFixed(2),
	}
	for _, b := range report.Buckets {
		dto.Buckets = append(dto.Buckets, agingBucketDTO{Label: b.Label, Total: b.Total.StringFixed(2), Count: b.Count})
	}
	for _, p := range report.Parties {
		party := agingPartyDTO{PartyID: p.PartyID, PartyName: p.PartyName, Total: p.Total.StringFixed(2)}
		for _, amount := range p.Amounts {
			party.Amounts = append(party.Amounts, amount.StringFixed(2))
		}
		dto.Parties = append(dto.Parties, party)
	}
	for _, item := range report.Items {
		dto.Items = append(dto.Items, agingItemDTO{
			ItemID:         item.ItemID,
			PartyID:        item.PartyID,
			PartyName:      item.PartyName,
			DocumentNumber: item.DocumentNumber,
			IssueDate:      item.IssueDate.Format(dateLayout),
			DueDate:        item.DueDate.Format(dateLayout),
			AmountDue:      item.AmountDue.StringFixed(2),
			DaysOverdue:    item.DaysOverdue,
			Bucket:         item.Bucket,
		})
	}
	httpx.JSON(w, http.StatusOK, dto)
}

// parsePeriods reads a comma-separated boundary list, defaulting when empty.
func parsePeriods(raw string) ([]int, error) {
	if raw == "" {
		return DefaultAgingPeriods, nil
	}
	parts := strings.Split(raw, ",")
	periods := make([]int, 0, len(parts))
	prev := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= prev {
			return nil, strconv.ErrSyntax
		}
		periods = append(periods, n)
		prev = n
	}
	return periods, nil
}
