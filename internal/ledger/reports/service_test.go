package reports

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/balance"
	"github.com/granary-books/granary/internal/ledger/openitems"
	"github.com/granary-books/granary/internal/shared"
)

type memoryLine struct {
	accountID   int64
	entryID     int64
	entryNumber int64
	date        time.Time
	source      string
	debit       decimal.Decimal
	credit      decimal.Decimal
}

// memoryReportRepo backs Reader and Repository with fixture data; every
// "snapshot" sees the same state, which is exactly the guarantee reports
// rely on.
type memoryReportRepo struct {
	accounts  []accounts.Account
	lines     []memoryLine
	snapshots int
}

func (r *memoryReportRepo) WithSnapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	r.snapshots++
	return fn(ctx, (*memoryReader)(r))
}

type memoryReader memoryReportRepo

func (r *memoryReader) GetAccount(ctx context.Context, tenant uuid.UUID, accountID int64) (accounts.Account, error) {
	for _, a := range r.accounts {
		if a.ID == accountID {
			return a, nil
		}
	}
	return accounts.Account{}, fmt.Errorf("%w: account %d", shared.ErrNotFound, accountID)
}

func (r *memoryReader) ListAccounts(ctx context.Context, tenant uuid.UUID) ([]accounts.Account, error) {
	return r.accounts, nil
}

func (r *memoryReader) SumPostedLines(ctx context.Context, tenant uuid.UUID, accountID int64, until time.Time) (balance.Activity, error) {
	a := balance.Activity{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, line := range r.lines {
		if line.accountID != accountID || line.date.After(until) {
			continue
		}
		a.Debit = a.Debit.Add(line.debit)
		a.Credit = a.Credit.Add(line.credit)
	}
	return a, nil
}

func (r *memoryReader) SumPostedLinesInRange(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) (balance.Activity, error) {
	a := balance.Activity{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, line := range r.lines {
		if line.accountID != accountID || line.date.Before(start) || line.date.After(end) {
			continue
		}
		a.Debit = a.Debit.Add(line.debit)
		a.Credit = a.Credit.Add(line.credit)
	}
	return a, nil
}

func (r *memoryReader) ActivityByAccountInRange(ctx context.Context, tenant uuid.UUID, start, end time.Time) (map[int64]balance.Activity, error) {
	out := make(map[int64]balance.Activity)
	for _, line := range r.lines {
		if line.date.Before(start) || line.date.After(end) {
			continue
		}
		a := out[line.accountID]
		a.Debit = a.Debit.Add(line.debit)
		a.Credit = a.Credit.Add(line.credit)
		out[line.accountID] = a
	}
	return out, nil
}

func (r *memoryReader) ActivityByTypeUntil(ctx context.Context, tenant uuid.UUID, accountType accounts.AccountType, until time.Time) (balance.Activity, error) {
	byID := make(map[int64]accounts.AccountType, len(r.accounts))
	for _, a := range r.accounts {
		byID[a.ID] = a.Type
	}
	out := balance.Activity{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, line := range r.lines {
		if byID[line.accountID] != accountType || line.date.After(until) {
			continue
		}
		out.Debit = out.Debit.Add(line.debit)
		out.Credit = out.Credit.Add(line.credit)
	}
	return out, nil
}

func (r *memoryReader) LedgerLines(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) ([]LedgerLine, error) {
	var out []LedgerLine
	for _, line := range r.lines {
		if line.accountID != accountID || line.date.Before(start) || line.date.After(end) {
			continue
		}
		out = append(out, LedgerLine{
			EntryID:     line.entryID,
			EntryNumber: line.entryNumber,
			Date:        line.date,
			Debit:       line.debit,
			Credit:      line.credit,
		})
	}
	return out, nil
}

type memoryOpenItems struct {
	items []openitems.OpenItem
}

func (r *memoryOpenItems) Upsert(ctx context.Context, item openitems.OpenItem) (openitems.OpenItem, error) {
	r.items = append(r.items, item)
	return item, nil
}

func (r *memoryOpenItems) ApplyPayment(ctx context.Context, tenant uuid.UUID, itemID int64, amount decimal.Decimal) error {
	return nil
}

func (r *memoryOpenItems) ListOverdue(ctx context.Context, tenant uuid.UUID, kind openitems.Kind, asOf time.Time) ([]openitems.OpenItem, error) {
	var out []openitems.OpenItem
	for _, item := range r.items {
		if item.Kind == kind && !item.DueDate.After(asOf) && item.AmountDue.IsPositive() {
			out = append(out, item)
		}
	}
	return out, nil
}

func svcDay(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

// Cash opened at 1000; a 500 cash sale on day 10 and a 200 rent payment on
// day 12 are posted; accounts payable carries the 200 until paid.
func newReportFixture() *memoryReportRepo {
	return &memoryReportRepo{
		accounts: []accounts.Account{
			{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, IsActive: true, OpeningBalance: amt("1000")},
			{ID: 2, Code: "2000", Name: "AP", Type: accounts.AccountTypeLiability, IsActive: true, OpeningBalance: decimal.Zero},
			{ID: 3, Code: "3000", Name: "Opening Balance Equity", Type: accounts.AccountTypeEquity, IsActive: true, OpeningBalance: amt("1000")},
			{ID: 4, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, IsActive: true, OpeningBalance: decimal.Zero},
			{ID: 5, Code: "5000", Name: "Rent", Type: accounts.AccountTypeExpense, IsActive: true, OpeningBalance: decimal.Zero},
			{ID: 6, Code: "1900", Name: "Old Cash", Type: accounts.AccountTypeAsset, IsActive: false, OpeningBalance: decimal.Zero},
		},
		lines: []memoryLine{
			{accountID: 1, entryID: 1, entryNumber: 1, date: svcDay(10), debit: amt("500"), credit: decimal.Zero},
			{accountID: 4, entryID: 1, entryNumber: 1, date: svcDay(10), debit: decimal.Zero, credit: amt("500")},
			{accountID: 5, entryID: 2, entryNumber: 2, date: svcDay(12), debit: amt("200"), credit: decimal.Zero},
			{accountID: 2, entryID: 2, entryNumber: 2, date: svcDay(12), debit: decimal.Zero, credit: amt("200")},
		},
	}
}

func newTestReportService(repo *memoryReportRepo, items *memoryOpenItems) *Service {
	if items == nil {
		items = &memoryOpenItems{}
	}
	return NewService(repo, items, slog.Default(), nil)
}

var reportTenant = uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000003")

func TestServiceTrialBalance(t *testing.T) {
	repo := newReportFixture()
	svc := newTestReportService(repo, nil)

	tb, err := svc.TrialBalance(context.Background(), reportTenant, svcDay(31))
	require.NoError(t, err)

	require.True(t, tb.IsBalanced)
	require.True(t, tb.TotalDebit.Equal(amt("1700")))
	require.True(t, tb.TotalCredit.Equal(amt("1700")))
	for _, row := range tb.Rows {
		require.NotEqual(t, "1900", row.Code, "inactive accounts are excluded")
	}
	require.Equal(t, 1, repo.snapshots, "one snapshot per report")
}

func TestServiceProfitAndLossWithComparison(t *testing.T) {
	repo := newReportFixture()
	svc := newTestReportService(repo, nil)

	compareStart, compareEnd := svcDay(1), svcDay(11)
	pl, err := svc.ProfitAndLoss(context.Background(), reportTenant, svcDay(1), svcDay(31), &compareStart, &compareEnd)
	require.NoError(t, err)

	require.True(t, pl.Comparative)
	require.True(t, pl.NetIncome.Equal(amt("300")))
	// The comparison window ends before the rent entry.
	require.True(t, pl.CompareNetIncome.Equal(amt("500")))
	require.Equal(t, 2, repo.snapshots, "each period reads its own snapshot")
}

func TestServiceBalanceSheetDerivesRetainedEarnings(t *testing.T) {
	repo := newReportFixture()
	svc := newTestReportService(repo, nil)

	report, err := svc.BalanceSheet(context.Background(), reportTenant, svcDay(31), nil)
	require.NoError(t, err)

	bs := report.Current
	require.True(t, bs.TotalAssets.Equal(amt("1500")))
	require.True(t, bs.TotalLiabilities.Equal(amt("200")))
	require.True(t, bs.TotalEquity.Equal(amt("1000")))
	require.True(t, bs.RetainedEarnings.Equal(amt("300")), "revenue 500 less expenses 200")
	require.True(t, bs.IsBalanced)
	require.Nil(t, report.Compare)
}

func TestServiceBalanceSheetIncludesInactiveBalances(t *testing.T) {
	repo := &memoryReportRepo{
		accounts: []accounts.Account{
			{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, IsActive: true, OpeningBalance: amt("1000")},
			{ID: 2, Code: "1500", Name: "Old Equipment", Type: accounts.AccountTypeAsset, IsActive: false, OpeningBalance: decimal.Zero},
			{ID: 3, Code: "3000", Name: "Opening Balance Equity", Type: accounts.AccountTypeEquity, IsActive: true, OpeningBalance: amt("1000")},
			{ID: 4, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, IsActive: true, OpeningBalance: decimal.Zero},
		},
		lines: []memoryLine{
			{accountID: 2, entryID: 1, entryNumber: 1, date: svcDay(10), debit: amt("100"), credit: decimal.Zero},
			{accountID: 4, entryID: 1, entryNumber: 1, date: svcDay(10), debit: decimal.Zero, credit: amt("100")},
		},
	}
	svc := newTestReportService(repo, nil)

	report, err := svc.BalanceSheet(context.Background(), reportTenant, svcDay(31), nil)
	require.NoError(t, err)

	bs := report.Current
	require.True(t, bs.TotalAssets.Equal(amt("1100")), "deactivated asset balance still counts")
	require.True(t, bs.RetainedEarnings.Equal(amt("100")))
	require.True(t, bs.IsBalanced, "equation holds even with a deactivated account in play")

	var codes []string
	for _, row := range bs.Assets.Rows {
		codes = append(codes, row.Code)
	}
	require.Contains(t, codes, "1500")
}

func TestServiceBalanceSheetWithComparisonDate(t *testing.T) {
	repo := newReportFixture()
	svc := newTestReportService(repo, nil)

	compareAsOf := svcDay(11)
	report, err := svc.BalanceSheet(context.Background(), reportTenant, svcDay(31), &compareAsOf)
	require.NoError(t, err)

	require.NotNil(t, report.Compare)
	require.True(t, report.Compare.RetainedEarnings.Equal(amt("500")), "rent not yet posted on day 11")
	require.True(t, report.Compare.IsBalanced)
}

func TestServiceGeneralLedger(t *testing.T) {
	repo := newReportFixture()
	svc := newTestReportService(repo, nil)

	accountID := int64(1)
	gl, err := svc.GeneralLedger(context.Background(), reportTenant, svcDay(11), svcDay(31), &accountID)
	require.NoError(t, err)

	require.Len(t, gl.Accounts, 1)
	cash := gl.Accounts[0]
	// Opening includes everything dated before the period start.
	require.True(t, cash.Opening.Equal(amt("1500")))
	require.Empty(t, cash.Lines, "no cash activity after day 10")
	require.True(t, cash.Closing.Equal(amt("1500")))
}

func TestServiceGeneralLedgerAllActiveAccounts(t *testing.T) {
	repo := newReportFixture()
	svc := newTestReportService(repo, nil)

	gl, err := svc.GeneralLedger(context.Background(), reportTenant, svcDay(1), svcDay(31), nil)
	require.NoError(t, err)

	require.Len(t, gl.Accounts, 5, "inactive accounts are skipped")
}

func TestServiceARAging(t *testing.T) {
	repo := newReportFixture()
	items := &memoryOpenItems{items: []openitems.OpenItem{
		{ID: 1, Kind: openitems.KindReceivable, PartyID: 7, PartyName: "Acme", DocumentNumber: "INV-1", DueDate: svcDay(1), AmountDue: amt("250"), Status: openitems.StatusOpen},
		{ID: 2, Kind: openitems.KindPayable, PartyID: 8, PartyName: "Supplies Co", DocumentNumber: "BILL-1", DueDate: svcDay(1), AmountDue: amt("80"), Status: openitems.StatusOpen},
	}}
	svc := newTestReportService(repo, items)

	ar, err := svc.ARAging(context.Background(), reportTenant, svcDay(31), nil)
	require.NoError(t, err)
	require.True(t, ar.Total.Equal(amt("250")), "payable items stay out of AR aging")
	require.Equal(t, openitems.KindReceivable, ar.Kind)

	ap, err := svc.APAging(context.Background(), reportTenant, svcDay(31), nil)
	require.NoError(t, err)
	require.True(t, ap.Total.Equal(amt("80")))
}
