package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/balance"
)

func plAccounts() []accounts.Account {
	return []accounts.Account{
		{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset},
		{ID: 2, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue},
		{ID: 3, Code: "4100", Name: "Services", Type: accounts.AccountTypeRevenue},
		{ID: 4, Code: "5000", Name: "Rent", Type: accounts.AccountTypeExpense},
	}
}

func plRange() (time.Time, time.Time) {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
}

func TestBuildProfitAndLoss(t *testing.T) {
	start, end := plRange()
	activity := map[int64]balance.Activity{
		1: {Debit: amt("700"), Credit: amt("200")}, // asset, must be ignored
		2: {Credit: amt("900")},
		4: {Debit: amt("400")},
	}

	pl := BuildProfitAndLoss(start, end, plAccounts(), activity, nil)

	require.False(t, pl.Comparative)
	require.Len(t, pl.Revenue.Rows, 1, "accounts without activity are dropped")
	require.Equal(t, "4000", pl.Revenue.Rows[0].Code)
	require.True(t, pl.Revenue.Total.Equal(amt("900")))
	require.Len(t, pl.Expenses.Rows, 1)
	require.True(t, pl.Expenses.Total.Equal(amt("400")))
	require.True(t, pl.NetIncome.Equal(amt("500")))
}

func TestBuildProfitAndLossComparativeMergesPerAccount(t *testing.T) {
	start, end := plRange()
	activity := map[int64]balance.Activity{
		2: {Credit: amt("900")},
	}
	compare := map[int64]balance.Activity{
		2: {Credit: amt("600")},
		3: {Credit: amt("150")}, // only in the comparison period
	}

	pl := BuildProfitAndLoss(start, end, plAccounts(), activity, compare)

	require.True(t, pl.Comparative)
	require.Len(t, pl.Revenue.Rows, 2)
	// Rows are code-sorted, so 4000 precedes 4100.
	require.Equal(t, "4000", pl.Revenue.Rows[0].Code)
	require.True(t, pl.Revenue.Rows[0].Amount.Equal(amt("900")))
	require.True(t, pl.Revenue.Rows[0].CompareAmount.Equal(amt("600")))
	require.Equal(t, "4100", pl.Revenue.Rows[1].Code)
	require.True(t, pl.Revenue.Rows[1].Amount.IsZero())
	require.True(t, pl.Revenue.Rows[1].CompareAmount.Equal(amt("150")))
	require.True(t, pl.CompareNetIncome.Equal(amt("750")))
}

func TestBuildProfitAndLossContraActivity(t *testing.T) {
	start, end := plRange()
	// A refund debits revenue; the period total nets it out.
	activity := map[int64]balance.Activity{
		2: {Debit: amt("100"), Credit: amt("900")},
	}

	pl := BuildProfitAndLoss(start, end, plAccounts(), activity, nil)

	require.True(t, pl.Revenue.Total.Equal(amt("800")))
	require.True(t, pl.NetIncome.Equal(amt("800")))
}
