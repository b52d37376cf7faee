package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/granary-books/granary/internal/ledger/accounts"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func asOf() time.Time { return time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC) }

func TestBuildTrialBalance(t *testing.T) {
	balances := []AccountBalance{
		{Account: accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}, Balance: amt("1500")},
		{Account: accounts.Account{ID: 2, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue}, Balance: amt("500")},
		{Account: accounts.Account{ID: 3, Code: "3000", Name: "Equity", Type: accounts.AccountTypeEquity}, Balance: amt("1000")},
		{Account: accounts.Account{ID: 4, Code: "1100", Name: "Empty", Type: accounts.AccountTypeAsset}, Balance: decimal.Zero},
	}

	tb := BuildTrialBalance(asOf(), balances)

	require.Len(t, tb.Rows, 3, "zero-balance accounts are dropped")
	require.True(t, tb.Rows[0].Debit.Equal(amt("1500")))
	require.True(t, tb.Rows[0].Credit.IsZero())
	require.True(t, tb.Rows[1].Credit.Equal(amt("500")))
	require.True(t, tb.TotalDebit.Equal(amt("1500")))
	require.True(t, tb.TotalCredit.Equal(amt("1500")))
	require.True(t, tb.IsBalanced)
}

func TestBuildTrialBalanceNegativeBalanceSwitchesColumn(t *testing.T) {
	// An overdrawn asset account reports on the credit column as a
	// positive amount.
	balances := []AccountBalance{
		{Account: accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}, Balance: amt("-250")},
		{Account: accounts.Account{ID: 2, Code: "2000", Name: "AP", Type: accounts.AccountTypeLiability}, Balance: amt("-250")},
	}

	tb := BuildTrialBalance(asOf(), balances)

	require.True(t, tb.Rows[0].Credit.Equal(amt("250")))
	require.True(t, tb.Rows[0].Debit.IsZero())
	require.True(t, tb.Rows[1].Debit.Equal(amt("250")))
	require.True(t, tb.IsBalanced)
}

func TestBuildTrialBalanceSurfacesImbalance(t *testing.T) {
	balances := []AccountBalance{
		{Account: accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}, Balance: amt("1500")},
		{Account: accounts.Account{ID: 2, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue}, Balance: amt("400")},
	}

	tb := BuildTrialBalance(asOf(), balances)

	require.False(t, tb.IsBalanced)
	require.True(t, tb.TotalDebit.Equal(amt("1500")))
	require.True(t, tb.TotalCredit.Equal(amt("400")))
}
