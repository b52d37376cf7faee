// Package balance derives account balances from posted line history. A
// balance is always a pure function of the opening balance and the posted
// lines up to the cutoff; nothing here is cached as authoritative state.
package balance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/ledger/accounts"
)

// Activity is the raw debit/credit sum over some set of posted lines.
type Activity struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Signed collapses an activity to a single amount under the account type's
// normal-balance convention: debit-normal types (ASSET, EXPENSE) increase
// on debit, the rest increase on credit.
func Signed(t accounts.AccountType, a Activity) decimal.Decimal {
	if t.NormalDebit() {
		return a.Debit.Sub(a.Credit)
	}
	return a.Credit.Sub(a.Debit)
}

// Apply produces a point-in-time balance: opening plus sign-adjusted activity.
func Apply(t accounts.AccountType, opening decimal.Decimal, a Activity) decimal.Decimal {
	return opening.Add(Signed(t, a))
}

// Repository exposes the line aggregates the calculator needs. Only lines
// on posted entries contribute; voided entries are excluded entirely.
type Repository interface {
	GetAccount(ctx context.Context, tenant uuid.UUID, accountID int64) (accounts.Account, error)
	SumPostedLines(ctx context.Context, tenant uuid.UUID, accountID int64, until time.Time) (Activity, error)
	SumPostedLinesInRange(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) (Activity, error)
}

// Calculator computes point-in-time and ranged balances.
type Calculator struct {
	repo Repository
}

// NewCalculator constructs a Calculator.
func NewCalculator(repo Repository) *Calculator {
	return &Calculator{repo: repo}
}

// BalanceAsOf returns the account balance up to and including asOf: the
// stored opening balance plus the sign-adjusted sum of posted lines.
func (c *Calculator) BalanceAsOf(ctx context.Context, tenant uuid.UUID, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	account, err := c.repo.GetAccount(ctx, tenant, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	activity, err := c.repo.SumPostedLines(ctx, tenant, accountID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return Apply(account.Type, account.OpeningBalance, activity), nil
}

// BalanceOverRange returns the sign-adjusted activity for lines dated within
// [start, end]. The opening balance is not included: period activity is what
// P&L accounts report, and they carry no running balance across periods.
func (c *Calculator) BalanceOverRange(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) (decimal.Decimal, error) {
	account, err := c.repo.GetAccount(ctx, tenant, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	activity, err := c.repo.SumPostedLinesInRange(ctx, tenant, accountID, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return Signed(account.Type, activity), nil
}
