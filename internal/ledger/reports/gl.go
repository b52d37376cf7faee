package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/balance"
	"github.com/granary-books/granary/internal/ledger/journal"
)

// LedgerLine is one posted line's activity as read for the general ledger.
type LedgerLine struct {
	EntryID     int64
	EntryNumber int64
	Date        time.Time
	Source      journal.Source
	Memo        string
	Reference   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// GeneralLedgerLine is a LedgerLine with the running balance after it.
type GeneralLedgerLine struct {
	LedgerLine
	Running decimal.Decimal
}

// GeneralLedgerAccount holds one account's activity over the period.
type GeneralLedgerAccount struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	Opening   decimal.Decimal
	Lines     []GeneralLedgerLine
	Closing   decimal.Decimal
}

// GeneralLedger lists per-account activity with running balances.
type GeneralLedger struct {
	Start    time.Time
	End      time.Time
	Accounts []GeneralLedgerAccount
}

// BuildGeneralLedgerAccount orders the period's lines by date then entry
// number (the tie-break keeps running balances deterministic when several
// entries share a date) and threads the running balance from the opening
// balance through to the closing balance.
func BuildGeneralLedgerAccount(account accounts.Account, opening decimal.Decimal, lines []LedgerLine) GeneralLedgerAccount {
	sorted := make([]LedgerLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].EntryNumber < sorted[j].EntryNumber
	})

	out := GeneralLedgerAccount{
		AccountID: account.ID,
		Code:      account.Code,
		Name:      account.Name,
		Type:      account.Type,
		Opening:   opening,
	}
	running := opening
	for _, line := range sorted {
		running = running.Add(balance.Signed(account.Type, balance.Activity{Debit: line.Debit, Credit: line.Credit}))
		out.Lines = append(out.Lines, GeneralLedgerLine{LedgerLine: line, Running: running})
	}
	out.Closing = running
	return out
}
