package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/shared"
)

// Repository defines data access for the chart of accounts.
type Repository interface {
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) error
	Delete(ctx context.Context, tenant uuid.UUID, id int64) error
	GetByID(ctx context.Context, tenant uuid.UUID, id int64) (Account, error)
	GetByCode(ctx context.Context, tenant uuid.UUID, code string) (Account, error)
	List(ctx context.Context, tenant uuid.UUID) ([]Account, error)
	GetSystemAccount(ctx context.Context, tenant uuid.UUID, subType AccountSubType) (Account, error)
	HasLines(ctx context.Context, tenant uuid.UUID, accountID int64) (bool, error)
}

// Service owns chart-of-accounts business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the chart of accounts service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput groups the fields accepted when creating an account.
type CreateInput struct {
	TenantID           uuid.UUID
	Code               string
	Name               string
	Type               AccountType
	SubType            AccountSubType
	ParentID           *int64
	OpeningBalance     decimal.Decimal
	OpeningBalanceDate *time.Time
}

// Create adds an account to the tenant's chart.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if in.Code == "" || in.Name == "" {
		return Account{}, fmt.Errorf("%w: account code and name are required", shared.ErrInvalidArgument)
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", shared.ErrInvalidArgument, in.Type)
	}
	if in.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, in.TenantID, *in.ParentID)
		if err != nil {
			return Account{}, fmt.Errorf("%w: parent account %d", shared.ErrInvalidArgument, *in.ParentID)
		}
		if parent.Type != in.Type {
			return Account{}, fmt.Errorf("%w: parent account %s is %s, child must match", shared.ErrInvalidArgument, parent.Code, parent.Type)
		}
	}

	account := Account{
		TenantID:           in.TenantID,
		Code:               in.Code,
		Name:               in.Name,
		Type:               in.Type,
		SubType:            in.SubType,
		ParentID:           in.ParentID,
		IsActive:           true,
		OpeningBalance:     in.OpeningBalance.Round(2),
		OpeningBalanceDate: in.OpeningBalanceDate,
	}
	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("account created",
		slog.String("tenant", in.TenantID.String()),
		slog.String("code", created.Code),
		slog.String("type", string(created.Type)))
	return created, nil
}

// UpdateInput carries the mutable account fields. Nil pointers leave the
// field untouched.
type UpdateInput struct {
	Name        *string
	SubType     *AccountSubType
	ParentID    *int64
	ClearParent bool
	IsActive    *bool
	Code        *string
}

// Update applies field changes to an account. The code is immutable, system
// accounts cannot be deactivated, and reparenting is checked for cycles.
func (s *Service) Update(ctx context.Context, tenant uuid.UUID, id int64, in UpdateInput) (Account, error) {
	account, err := s.repo.GetByID(ctx, tenant, id)
	if err != nil {
		return Account{}, err
	}
	if in.Code != nil && *in.Code != account.Code {
		return Account{}, fmt.Errorf("%w: account code cannot be changed", shared.ErrInvalidArgument)
	}
	if in.IsActive != nil && !*in.IsActive && account.IsSystem {
		return Account{}, fmt.Errorf("%w: system account %s cannot be deactivated", shared.ErrInvalidArgument, account.Code)
	}

	if in.ClearParent {
		account.ParentID = nil
	} else if in.ParentID != nil {
		if err := s.checkReparent(ctx, account, *in.ParentID); err != nil {
			return Account{}, err
		}
		parentID := *in.ParentID
		account.ParentID = &parentID
	}
	if in.Name != nil {
		account.Name = *in.Name
	}
	if in.SubType != nil {
		account.SubType = *in.SubType
	}
	if in.IsActive != nil {
		account.IsActive = *in.IsActive
	}
	account.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// checkReparent walks the proposed parent chain up to the root and rejects
// any path that leads back to the account. The walk is bounded by the
// tenant's account count so a corrupted chain cannot loop forever.
func (s *Service) checkReparent(ctx context.Context, account Account, newParentID int64) error {
	if newParentID == account.ID {
		return fmt.Errorf("%w: account cannot be its own parent", shared.ErrInvalidArgument)
	}
	all, err := s.repo.List(ctx, account.TenantID)
	if err != nil {
		return err
	}
	byID := make(map[int64]Account, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	parent, ok := byID[newParentID]
	if !ok {
		return fmt.Errorf("%w: parent account %d", shared.ErrInvalidArgument, newParentID)
	}
	if parent.Type != account.Type {
		return fmt.Errorf("%w: parent account %s is %s, child must match", shared.ErrInvalidArgument, parent.Code, parent.Type)
	}

	cursor := &parent
	for steps := 0; steps <= len(all); steps++ {
		if cursor.ID == account.ID {
			return fmt.Errorf("%w: reparenting %s under %s creates a cycle", shared.ErrInvalidArgument, account.Code, parent.Code)
		}
		if cursor.ParentID == nil {
			return nil
		}
		next, ok := byID[*cursor.ParentID]
		if !ok {
			return nil
		}
		cursor = &next
	}
	return fmt.Errorf("%w: parent chain of account %s does not terminate", shared.ErrInvalidArgument, parent.Code)
}

// Deactivate soft-deletes an account that has posted lines and hard-deletes
// one that was never referenced.
func (s *Service) Deactivate(ctx context.Context, tenant uuid.UUID, id int64) error {
	account, err := s.repo.GetByID(ctx, tenant, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return fmt.Errorf("%w: system account %s cannot be deactivated", shared.ErrInvalidArgument, account.Code)
	}
	referenced, err := s.repo.HasLines(ctx, tenant, id)
	if err != nil {
		return err
	}
	if !referenced {
		return s.repo.Delete(ctx, tenant, id)
	}
	account.IsActive = false
	account.UpdatedAt = s.now()
	return s.repo.Update(ctx, account)
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, tenant uuid.UUID, id int64) (Account, error) {
	return s.repo.GetByID(ctx, tenant, id)
}

// List returns the tenant's chart ordered by code.
func (s *Service) List(ctx context.Context, tenant uuid.UUID) ([]Account, error) {
	return s.repo.List(ctx, tenant)
}

// Tree returns the tenant's chart as a forest.
func (s *Service) Tree(ctx context.Context, tenant uuid.UUID) ([]*TreeNode, error) {
	flat, err := s.repo.List(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return BuildTree(flat), nil
}

// GetSystemAccount resolves the tenant's designated account for a role,
// e.g. the receivable or payable control account. Collaborator modules
// depend on this being deterministic: at most one active system account
// exists per sub-type per tenant.
func (s *Service) GetSystemAccount(ctx context.Context, tenant uuid.UUID, subType AccountSubType) (Account, error) {
	account, err := s.repo.GetSystemAccount(ctx, tenant, subType)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}
