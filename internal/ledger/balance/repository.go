package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/shared"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed balance repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetAccount(ctx context.Context, tenant uuid.UUID, accountID int64) (accounts.Account, error) {
	var a accounts.Account
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, code, name, type, sub_type, is_active, opening_balance, opening_balance_date
FROM accounts WHERE tenant_id=$1 AND id=$2`, tenant, accountID).
		Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.IsActive, &a.OpeningBalance, &a.OpeningBalanceDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, fmt.Errorf("%w: account %d", shared.ErrNotFound, accountID)
		}
		return accounts.Account{}, fmt.Errorf("balance: get account: %w", err)
	}
	return a, nil
}

func (r *repository) SumPostedLines(ctx context.Context, tenant uuid.UUID, accountID int64, until time.Time) (Activity, error) {
	var a Activity
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id=$1 AND l.account_id=$2 AND e.is_posted AND e.date <= $3`,
		tenant, accountID, until).Scan(&a.Debit, &a.Credit)
	if err != nil {
		return Activity{}, fmt.Errorf("balance: sum lines: %w", err)
	}
	return a, nil
}

func (r *repository) SumPostedLinesInRange(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) (Activity, error) {
	var a Activity
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id=$1 AND l.account_id=$2 AND e.is_posted AND e.date BETWEEN $3 AND $4`,
		tenant, accountID, start, end).Scan(&a.Debit, &a.Credit)
	if err != nil {
		return Activity{}, fmt.Errorf("balance: sum lines in range: %w", err)
	}
	return a, nil
}
