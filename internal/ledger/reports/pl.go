package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/balance"
)

// ProfitAndLossRow is one revenue or expense account's period activity,
// with the comparison period's amount merged in when one was requested.
type ProfitAndLossRow struct {
	AccountID     int64
	Code          string
	Name          string
	Type          accounts.AccountType
	Amount        decimal.Decimal
	CompareAmount decimal.Decimal
}

// ProfitAndLossSection groups rows by nature.
type ProfitAndLossSection struct {
	Label        string
	Rows         []ProfitAndLossRow
	Total        decimal.Decimal
	CompareTotal decimal.Decimal
}

// ProfitAndLoss reports period activity; balances-as-of play no part here.
type ProfitAndLoss struct {
	Start            time.Time
	End              time.Time
	Comparative      bool
	CompareStart     time.Time
	CompareEnd       time.Time
	Revenue          ProfitAndLossSection
	Expenses         ProfitAndLossSection
	NetIncome        decimal.Decimal
	CompareNetIncome decimal.Decimal
}

// BuildProfitAndLoss sums REVENUE and EXPENSE activity over the range and
// merges an optional comparison period per account. Accounts with no
// activity in either period are dropped.
func BuildProfitAndLoss(start, end time.Time, accts []accounts.Account, activity, compare map[int64]balance.Activity) ProfitAndLoss {
	pl := ProfitAndLoss{
		Start:       start,
		End:         end,
		Comparative: compare != nil,
		Revenue:     ProfitAndLossSection{Label: "Revenue", Total: decimal.Zero, CompareTotal: decimal.Zero},
		Expenses:    ProfitAndLossSection{Label: "Expenses", Total: decimal.Zero, CompareTotal: decimal.Zero},
	}

	for _, acc := range accts {
		if acc.Type != accounts.AccountTypeRevenue && acc.Type != accounts.AccountTypeExpense {
			continue
		}
		amount := balance.Signed(acc.Type, activity[acc.ID])
		compareAmount := decimal.Zero
		if compare != nil {
			compareAmount = balance.Signed(acc.Type, compare[acc.ID])
		}
		if amount.IsZero() && compareAmount.IsZero() {
			continue
		}
		row := ProfitAndLossRow{
			AccountID:     acc.ID,
			Code:          acc.Code,
			Name:          acc.Name,
			Type:          acc.Type,
			Amount:        amount,
			CompareAmount: compareAmount,
		}
		if acc.Type == accounts.AccountTypeRevenue {
			pl.Revenue.Rows = append(pl.Revenue.Rows, row)
			pl.Revenue.Total = pl.Revenue.Total.Add(amount)
			pl.Revenue.CompareTotal = pl.Revenue.CompareTotal.Add(compareAmount)
		} else {
			pl.Expenses.Rows = append(pl.Expenses.Rows, row)
			pl.Expenses.Total = pl.Expenses.Total.Add(amount)
			pl.Expenses.CompareTotal = pl.Expenses.CompareTotal.Add(compareAmount)
		}
	}

	sort.Slice(pl.Revenue.Rows, func(i, j int) bool { return pl.Revenue.Rows[i].Code < pl.Revenue.Rows[j].Code })
	sort.Slice(pl.Expenses.Rows, func(i, j int) bool { return pl.Expenses.Rows[i].Code < pl.Expenses.Rows[j].Code })

	pl.NetIncome = pl.Revenue.Total.Sub(pl.Expenses.Total)
	pl.CompareNetIncome = pl.Revenue.CompareTotal.Sub(pl.Expenses.CompareTotal)
	return pl
}
