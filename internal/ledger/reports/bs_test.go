package reports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/granary-books/granary/internal/ledger/accounts"
)

func TestBuildBalanceSheet(t *testing.T) {
	balances := []AccountBalance{
		{Account: accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}, Balance: amt("1500")},
		{Account: accounts.Account{ID: 2, Code: "2000", Name: "AP", Type: accounts.AccountTypeLiability}, Balance: amt("300")},
		{Account: accounts.Account{ID: 3, Code: "3000", Name: "Owner Equity", Type: accounts.AccountTypeEquity}, Balance: amt("700")},
	}

	bs := BuildBalanceSheet(asOf(), balances, amt("500"))

	require.True(t, bs.TotalAssets.Equal(amt("1500")))
	require.True(t, bs.TotalLiabilities.Equal(amt("300")))
	require.True(t, bs.TotalEquity.Equal(amt("700")))
	require.True(t, bs.RetainedEarnings.Equal(amt("500")))
	require.True(t, bs.IsBalanced, "assets = liabilities + equity + retained earnings")
}

func TestBuildBalanceSheetZeroRowsDroppedButCounted(t *testing.T) {
	balances := []AccountBalance{
		{Account: accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}, Balance: amt("100")},
		{Account: accounts.Account{ID: 2, Code: "1100", Name: "Bank", Type: accounts.AccountTypeAsset}, Balance: decimal.Zero},
	}

	bs := BuildBalanceSheet(asOf(), balances, amt("100"))

	require.Len(t, bs.Assets.Rows, 1)
	require.True(t, bs.TotalAssets.Equal(amt("100")))
}

func TestBuildBalanceSheetImbalanceSurfaced(t *testing.T) {
	balances := []AccountBalance{
		{Account: accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}, Balance: amt("1500")},
		{Account: accounts.Account{ID: 2, Code: "2000", Name: "AP", Type: accounts.AccountTypeLiability}, Balance: amt("300")},
	}

	bs := BuildBalanceSheet(asOf(), balances, amt("999"))

	require.False(t, bs.IsBalanced)
}

func TestBuildBalanceSheetIgnoresNonBalanceTypes(t *testing.T) {
	balances := []AccountBalance{
		{Account: accounts.Account{ID: 1, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue}, Balance: amt("900")},
	}

	bs := BuildBalanceSheet(asOf(), balances, decimal.Zero)

	require.Empty(t, bs.Assets.Rows)
	require.True(t, bs.TotalAssets.IsZero())
}
