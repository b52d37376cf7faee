package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/granary-books/granary/internal/shared"
)

// templateEntry describes one account in the default chart.
type templateEntry struct {
	Code     string
	Name     string
	Type     AccountType
	SubType  AccountSubType
	IsSystem bool
}

// defaultChart is the minimal chart a new tenant starts from. System rows
// are the control accounts collaborator modules resolve via
// GetSystemAccount; end users never pick them per transaction.
var defaultChart = []templateEntry{
	{Code: "1000", Name: "Cash", Type: AccountTypeAsset, SubType: SubTypeCash, IsSystem: true},
	{Code: "1010", Name: "Checking Account", Type: AccountTypeAsset, SubType: SubTypeBank},
	{Code: "1200", Name: "Accounts Receivable", Type: AccountTypeAsset, SubType: SubTypeAccountsReceivable, IsSystem: true},
	{Code: "1300", Name: "Inventory", Type: AccountTypeAsset, SubType: SubTypeInventory},
	{Code: "1500", Name: "Fixed Assets", Type: AccountTypeAsset, SubType: SubTypeFixedAsset},
	{Code: "2000", Name: "Accounts Payable", Type: AccountTypeLiability, SubType: SubTypeAccountsPayable, IsSystem: true},
	{Code: "2100", Name: "Credit Card", Type: AccountTypeLiability, SubType: SubTypeCreditCard},
	{Code: "2200", Name: "Tax Payable", Type: AccountTypeLiability, SubType: SubTypeTaxPayable, IsSystem: true},
	{Code: "3000", Name: "Opening Balance Equity", Type: AccountTypeEquity, SubType: SubTypeOpeningBalanceEquity, IsSystem: true},
	{Code: "3100", Name: "Owner's Equity", Type: AccountTypeEquity, SubType: SubTypeOwnerEquity},
	{Code: "4000", Name: "Sales", Type: AccountTypeRevenue, SubType: SubTypeSales, IsSystem: true},
	{Code: "4100", Name: "Other Revenue", Type: AccountTypeRevenue, SubType: SubTypeOtherRevenue},
	{Code: "5000", Name: "Cost of Goods Sold", Type: AccountTypeExpense, SubType: SubTypeCostOfGoodsSold},
	{Code: "6000", Name: "Operating Expenses", Type: AccountTypeExpense, SubType: SubTypeOperatingExpense},
	{Code: "6100", Name: "Payroll Expenses", Type: AccountTypeExpense, SubType: SubTypePayrollExpense},
}

// ProvisionDefaultChart creates the default chart for a tenant. Accounts
// whose code already exists are skipped so the call is idempotent.
func (s *Service) ProvisionDefaultChart(ctx context.Context, tenant uuid.UUID) ([]Account, error) {
	var created []Account
	for _, entry := range defaultChart {
		account := Account{
			TenantID: tenant,
			Code:     entry.Code,
			Name:     entry.Name,
			Type:     entry.Type,
			SubType:  entry.SubType,
			IsSystem: entry.IsSystem,
			IsActive: true,
		}
		inserted, err := s.repo.Create(ctx, account)
		if err != nil {
			if errors.Is(err, shared.ErrConflict) {
				continue
			}
			return nil, fmt.Errorf("provision chart: account %s: %w", entry.Code, err)
		}
		created = append(created, inserted)
	}
	return created, nil
}
