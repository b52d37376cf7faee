package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granary-books/granary/internal/platform/db"
	"github.com/granary-books/granary/internal/shared"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed chart repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `id, tenant_id, code, name, type, sub_type, parent_id, is_system, is_active, opening_balance, opening_balance_date, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.ParentID,
		&a.IsSystem, &a.IsActive, &a.OpeningBalance, &a.OpeningBalanceDate, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, type, sub_type, parent_id, is_system, is_active, opening_balance, opening_balance_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING `+accountColumns,
		account.TenantID, account.Code, account.Name, account.Type, account.SubType, account.ParentID,
		account.IsSystem, account.IsActive, account.OpeningBalance, account.OpeningBalanceDate)
	created, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_accounts_tenant_code") {
			return Account{}, fmt.Errorf("%w: account code %s already exists", shared.ErrConflict, account.Code)
		}
		if db.IsUniqueViolation(err, "uq_accounts_system_role") {
			return Account{}, fmt.Errorf("%w: tenant already has a system account for %s", shared.ErrConflict, account.SubType)
		}
		return Account{}, fmt.Errorf("accounts: create: %w", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, account Account) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET name=$3, sub_type=$4, parent_id=$5, is_active=$6, opening_balance=$7, opening_balance_date=$8, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`,
		account.TenantID, account.ID, account.Name, account.SubType, account.ParentID,
		account.IsActive, account.OpeningBalance, account.OpeningBalanceDate)
	if err != nil {
		return fmt.Errorf("accounts: update: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", shared.ErrNotFound, account.ID)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, tenant uuid.UUID, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE tenant_id=$1 AND id=$2`, tenant, id)
	if err != nil {
		return fmt.Errorf("accounts: delete: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, tenant uuid.UUID, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, tenant, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
		}
		return Account{}, fmt.Errorf("accounts: get: %w", err)
	}
	return account, nil
}

func (r *repository) GetByCode(ctx context.Context, tenant uuid.UUID, code string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND code=$2`, tenant, code)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, code)
		}
		return Account{}, fmt.Errorf("accounts: get by code: %w", err)
	}
	return account, nil
}

func (r *repository) List(ctx context.Context, tenant uuid.UUID) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 ORDER BY code`, tenant)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("accounts: list scan: %w", err)
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func (r *repository) GetSystemAccount(ctx context.Context, tenant uuid.UUID, subType AccountSubType) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE tenant_id=$1 AND sub_type=$2 AND is_system AND is_active`, tenant, subType)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: no system account for %s", shared.ErrNotFound, subType)
		}
		return Account{}, fmt.Errorf("accounts: system account: %w", err)
	}
	return account, nil
}

func (r *repository) HasLines(ctx context.Context, tenant uuid.UUID, accountID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id=$1 AND l.account_id=$2)`, tenant, accountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("accounts: has lines: %w", err)
	}
	return exists, nil
}
