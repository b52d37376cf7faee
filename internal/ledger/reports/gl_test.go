package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/journal"
)

func glDay(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

func TestBuildGeneralLedgerAccount(t *testing.T) {
	account := accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}
	lines := []LedgerLine{
		{EntryID: 3, EntryNumber: 3, Date: glDay(20), Source: journal.SourceManual, Credit: amt("200")},
		{EntryID: 1, EntryNumber: 1, Date: glDay(5), Source: journal.SourceManual, Debit: amt("500")},
		{EntryID: 2, EntryNumber: 2, Date: glDay(5), Source: journal.SourceInvoice, Debit: amt("100")},
	}

	gl := BuildGeneralLedgerAccount(account, amt("1000"), lines)

	require.True(t, gl.Opening.Equal(amt("1000")))
	require.Len(t, gl.Lines, 3)
	// Ordered by date then entry number.
	require.Equal(t, int64(1), gl.Lines[0].EntryNumber)
	require.Equal(t, int64(2), gl.Lines[1].EntryNumber)
	require.Equal(t, int64(3), gl.Lines[2].EntryNumber)
	// Running balance threads through debit-normal sign convention.
	require.True(t, gl.Lines[0].Running.Equal(amt("1500")))
	require.True(t, gl.Lines[1].Running.Equal(amt("1600")))
	require.True(t, gl.Lines[2].Running.Equal(amt("1400")))
	require.True(t, gl.Closing.Equal(amt("1400")))
}

func TestBuildGeneralLedgerAccountCreditNormal(t *testing.T) {
	account := accounts.Account{ID: 2, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue}
	lines := []LedgerLine{
		{EntryID: 1, EntryNumber: 1, Date: glDay(5), Credit: amt("500")},
		{EntryID: 2, EntryNumber: 2, Date: glDay(6), Debit: amt("100")},
	}

	gl := BuildGeneralLedgerAccount(account, amt("0"), lines)

	require.True(t, gl.Lines[0].Running.Equal(amt("500")))
	require.True(t, gl.Lines[1].Running.Equal(amt("400")))
	require.True(t, gl.Closing.Equal(amt("400")))
}

func TestBuildGeneralLedgerAccountNoActivity(t *testing.T) {
	account := accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}

	gl := BuildGeneralLedgerAccount(account, amt("250"), nil)

	require.Empty(t, gl.Lines)
	require.True(t, gl.Closing.Equal(amt("250")), "closing equals opening with no activity")
}
