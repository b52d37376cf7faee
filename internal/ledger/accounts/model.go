package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is one of the closed set of account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalDebit reports whether accounts of this type increase on the debit
// side. ASSET and EXPENSE are debit-normal; the rest are credit-normal.
func (t AccountType) NormalDebit() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// AccountSubType refines the classification within a type. Sub-types also
// name the roles system accounts are resolved by.
type AccountSubType string

const (
	SubTypeCash                 AccountSubType = "CASH"
	SubTypeBank                 AccountSubType = "BANK"
	SubTypeAccountsReceivable   AccountSubType = "ACCOUNTS_RECEIVABLE"
	SubTypeInventory            AccountSubType = "INVENTORY"
	SubTypeFixedAsset           AccountSubType = "FIXED_ASSET"
	SubTypeOtherAsset           AccountSubType = "OTHER_ASSET"
	SubTypeAccountsPayable      AccountSubType = "ACCOUNTS_PAYABLE"
	SubTypeCreditCard           AccountSubType = "CREDIT_CARD"
	SubTypeTaxPayable           AccountSubType = "TAX_PAYABLE"
	SubTypeOtherLiability       AccountSubType = "OTHER_LIABILITY"
	SubTypeOpeningBalanceEquity AccountSubType = "OPENING_BALANCE_EQUITY"
	SubTypeOwnerEquity          AccountSubType = "OWNER_EQUITY"
	SubTypeSales                AccountSubType = "SALES"
	SubTypeOtherRevenue         AccountSubType = "OTHER_REVENUE"
	SubTypeCostOfGoodsSold      AccountSubType = "COST_OF_GOODS_SOLD"
	SubTypeOperatingExpense     AccountSubType = "OPERATING_EXPENSE"
	SubTypePayrollExpense       AccountSubType = "PAYROLL_EXPENSE"
	SubTypeOtherExpense         AccountSubType = "OTHER_EXPENSE"
)

// Account models a chart of accounts node.
type Account struct {
	ID                 int64
	TenantID           uuid.UUID
	Code               string
	Name               string
	Type               AccountType
	SubType            AccountSubType
	ParentID           *int64
	IsSystem           bool
	IsActive           bool
	OpeningBalance     decimal.Decimal
	OpeningBalanceDate *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
