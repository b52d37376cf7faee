package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/shared"
)

// AccountBalance couples an account with its computed point-in-time balance.
type AccountBalance struct {
	Account accounts.Account
	Balance decimal.Decimal
}

// TrialBalanceRow is one account reclassified into a debit or credit column.
type TrialBalanceRow struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// TrialBalance is the primary ledger-integrity report.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsBalanced  bool
}

// BuildTrialBalance reclassifies computed balances into debit and credit
// columns per the normal-balance convention: a debit-normal account with a
// negative balance shows its absolute value in the credit column, and vice
// versa. Zero-balance accounts are dropped. The totals are reported as they
// come out, so a discrepancy is surfaced, never hidden.
func BuildTrialBalance(asOf time.Time, balances []AccountBalance) TrialBalance {
	tb := TrialBalance{
		AsOf:        asOf,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, ab := range balances {
		if ab.Balance.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			AccountID: ab.Account.ID,
			Code:      ab.Account.Code,
			Name:      ab.Account.Name,
			Type:      ab.Account.Type,
			Debit:     decimal.Zero,
			Credit:    decimal.Zero,
		}
		debitSide := ab.Account.Type.NormalDebit()
		if ab.Balance.IsNegative() {
			debitSide = !debitSide
		}
		if debitSide {
			row.Debit = ab.Balance.Abs()
		} else {
			row.Credit = ab.Balance.Abs()
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
	}
	tb.IsBalanced = shared.WithinTolerance(tb.TotalDebit, tb.TotalCredit)
	return tb
}
