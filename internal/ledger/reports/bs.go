package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/shared"
)

// BalanceSheetRow summarises one asset, liability, or equity account.
type BalanceSheetRow struct {
	AccountID int64
	Code      string
	Name      string
	Balance   decimal.Decimal
}

// BalanceSheetSection contains the rows and total for a classification.
type BalanceSheetSection struct {
	Label string
	Rows  []BalanceSheetRow
	Total decimal.Decimal
}

// BalanceSheet is the statement of financial position as of a date.
// RetainedEarnings is derived from cumulative revenue and expense activity,
// and IsBalanced verifies assets = liabilities + equity + retained earnings.
type BalanceSheet struct {
	AsOf             time.Time
	Assets           BalanceSheetSection
	Liabilities      BalanceSheetSection
	Equity           BalanceSheetSection
	RetainedEarnings decimal.Decimal
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	TotalEquity      decimal.Decimal
	IsBalanced       bool
}

// BuildBalanceSheet splits balances into the three sections and checks the
// accounting equation against the derived retained earnings. Zero-balance
// accounts are dropped from the rows but the totals always reflect every
// balance supplied.
func BuildBalanceSheet(asOf time.Time, balances []AccountBalance, retainedEarnings decimal.Decimal) BalanceSheet {
	bs := BalanceSheet{
		AsOf:             asOf,
		Assets:           BalanceSheetSection{Label: "Assets", Total: decimal.Zero},
		Liabilities:      BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero},
		Equity:           BalanceSheetSection{Label: "Equity", Total: decimal.Zero},
		RetainedEarnings: retainedEarnings,
	}

	for _, ab := range balances {
		var section *BalanceSheetSection
		switch ab.Account.Type {
		case accounts.AccountTypeAsset:
			section = &bs.Assets
		case accounts.AccountTypeLiability:
			section = &bs.Liabilities
		case accounts.AccountTypeEquity:
			section = &bs.Equity
		default:
			continue
		}
		section.Total = section.Total.Add(ab.Balance)
		if ab.Balance.IsZero() {
			continue
		}
		section.Rows = append(section.Rows, BalanceSheetRow{
			AccountID: ab.Account.ID,
			Code:      ab.Account.Code,
			Name:      ab.Account.Name,
			Balance:   ab.Balance,
		})
	}

	for _, section := range []*BalanceSheetSection{&bs.Assets, &bs.Liabilities, &bs.Equity} {
		rows := section.Rows
		sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	}

	bs.TotalAssets = bs.Assets.Total
	bs.TotalLiabilities = bs.Liabilities.Total
	bs.TotalEquity = bs.Equity.Total
	bs.IsBalanced = shared.WithinTolerance(bs.TotalAssets, bs.TotalLiabilities.Add(bs.TotalEquity).Add(bs.RetainedEarnings))
	return bs
}
