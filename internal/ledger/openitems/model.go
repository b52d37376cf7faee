// Package openitems stores the open-invoice and open-bill projection the
// aging reports read. Document lifecycles live in the collaborating
// invoice/bill modules; they maintain these rows as payments are applied.
package openitems

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind separates receivable items (customer invoices) from payable items
// (vendor bills).
type Kind string

const (
	KindReceivable Kind = "RECEIVABLE"
	KindPayable    Kind = "PAYABLE"
)

// Status enumerates open-item lifecycle values.
type Status string

const (
	StatusOpen Status = "OPEN"
	StatusPaid Status = "PAID"
	StatusVoid Status = "VOID"
)

// OpenItem is one outstanding invoice or bill.
type OpenItem struct {
	ID             int64
	TenantID       uuid.UUID
	Kind           Kind
	PartyID        int64
	PartyName      string
	DocumentNumber string
	IssueDate      time.Time
	DueDate        time.Time
	Total          decimal.Decimal
	AmountDue      decimal.Decimal
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
