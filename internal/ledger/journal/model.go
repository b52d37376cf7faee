package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/shared"
)

// Source enumerates where a journal entry originated. The set is closed:
// edit and void rules switch exhaustively over it.
type Source string

const (
	SourceManual          Source = "MANUAL"
	SourceInvoice         Source = "INVOICE"
	SourceBill            Source = "BILL"
	SourceCustomerPayment Source = "CUSTOMER_PAYMENT"
	SourceBillPayment     Source = "BILL_PAYMENT"
	SourceBankImport      Source = "BANK_IMPORT"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceInvoice, SourceBill, SourceCustomerPayment, SourceBillPayment, SourceBankImport:
		return true
	}
	return false
}

// Editable reports whether entries from this source may be edited or voided
// directly. Entries owned by an external document are corrected through
// that document, never here.
func (s Source) Editable() bool {
	switch s {
	case SourceManual:
		return true
	case SourceInvoice, SourceBill, SourceCustomerPayment, SourceBillPayment, SourceBankImport:
		return false
	}
	return false
}

// Entry captures journal posting metadata. Entries are never physically
// deleted; voiding flips IsPosted so history stays inspectable.
type Entry struct {
	ID              int64
	TenantID        uuid.UUID
	EntryNumber     int64
	Date            time.Time
	Source          Source
	SourceID        *uuid.UUID
	IsPosted        bool
	IsReversing     bool
	ReversedEntryID *int64
	Memo            string
	Reference       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []Line
}

// Line stores one debit or credit against an account. Immutable once its
// entry is posted; manual edits replace the whole line set.
type Line struct {
	ID         int64
	EntryID    int64
	AccountID  int64
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	CustomerID *int64
	VendorID   *int64
	CreatedAt  time.Time
}

// LineInput describes a journal line for a posting request.
type LineInput struct {
	AccountID  int64
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	CustomerID *int64
	VendorID   *int64
}

// PostingInput groups the fields required to create a journal entry.
type PostingInput struct {
	TenantID  uuid.UUID
	Date      time.Time
	Source    Source
	SourceID  *uuid.UUID
	Memo      string
	Reference string
	Lines     []LineInput
}

// Validate checks the request shape: a known source, a date, at least two
// lines, each naming an account. Account existence and the per-line checks
// run inside the posting transaction, after the accounts are resolved.
func (in PostingInput) Validate() error {
	if !in.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, in.Source)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: entry date is required", shared.ErrInvalidArgument)
	}
	if len(in.Lines) < 2 {
		return fmt.Errorf("%w: journal entry requires at least two lines", shared.ErrInvalidArgument)
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("%w: line %d missing account", shared.ErrInvalidArgument, idx+1)
		}
	}
	return nil
}

// validateLineSet enforces the per-line invariants (exactly one positive
// side) and that debits equal credits across the set.
func validateLineSet(lines []LineInput) error {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for idx, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative amount", shared.ErrInvalidArgument, idx+1)
		}
		hasDebit := line.Debit.IsPositive()
		hasCredit := line.Credit.IsPositive()
		if hasDebit == hasCredit {
			return fmt.Errorf("%w: line %d must have exactly one of debit or credit", shared.ErrInvalidArgument, idx+1)
		}
		totalDebit = totalDebit.Add(line.Debit.Round(2))
		totalCredit = totalCredit.Add(line.Credit.Round(2))
	}
	if !totalDebit.Equal(totalCredit) {
		return fmt.Errorf("%w: entry does not balance: debits %s, credits %s",
			shared.ErrInvalidArgument, totalDebit.StringFixed(2), totalCredit.StringFixed(2))
	}
	return nil
}

func roundLines(lines []LineInput) []LineInput {
	out := make([]LineInput, len(lines))
	for i, line := range lines {
		line.Debit = line.Debit.Round(2)
		line.Credit = line.Credit.Round(2)
		out[i] = line
	}
	return out
}
