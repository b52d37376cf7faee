package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/balance"
	"github.com/granary-books/granary/internal/platform/db"
	"github.com/granary-books/granary/internal/shared"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed report repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithSnapshot runs fn against a single repeatable-read transaction, so
// every query a report issues sees the same committed state.
func (r *repository) WithSnapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txReader{tx: tx})
	})
}

type txReader struct {
	tx pgx.Tx
}

func (r *txReader) GetAccount(ctx context.Context, tenant uuid.UUID, accountID int64) (accounts.Account, error) {
	var a accounts.Account
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, code, name, type, sub_type, is_active, opening_balance, opening_balance_date
FROM accounts WHERE tenant_id=$1 AND id=$2`, tenant, accountID).
		Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.IsActive, &a.OpeningBalance, &a.OpeningBalanceDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, fmt.Errorf("%w: account %d", shared.ErrNotFound, accountID)
		}
		return accounts.Account{}, fmt.Errorf("reports: get account: %w", err)
	}
	return a, nil
}

func (r *txReader) SumPostedLines(ctx context.Context, tenant uuid.UUID, accountID int64, until time.Time) (balance.Activity, error) {
	var a balance.Activity
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id=$1 AND l.account_id=$2 AND e.is_posted AND e.date <= $3`,
		tenant, accountID, until).Scan(&a.Debit, &a.Credit)
	if err != nil {
		return balance.Activity{}, fmt.Errorf("reports: sum lines: %w", err)
	}
	return a, nil
}

func (r *txReader) SumPostedLinesInRange(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) (balance.Activity, error) {
	var a balance.Activity
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id=$1 AND l.account_id=$2 AND e.is_posted AND e.date BETWEEN $3 AND $4`,
		tenant, accountID, start, end).Scan(&a.Debit, &a.Credit)
	if err != nil {
		return balance.Activity{}, fmt.Errorf("reports: sum lines in range: %w", err)
	}
	return a, nil
}

func (r *txReader) ListAccounts(ctx context.Context, tenant uuid.UUID) ([]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, tenant_id, code, name, type, sub_type, is_active, opening_balance, opening_balance_date
FROM accounts WHERE tenant_id=$1 ORDER BY code`, tenant)
	if err != nil {
		return nil, fmt.Errorf("reports: list accounts: %w", err)
	}
	defer rows.Close()

	var out []accounts.Account
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.IsActive, &a.OpeningBalance, &a.OpeningBalanceDate); err != nil {
			return nil, fmt.Errorf("reports: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *txReader) ActivityByAccountInRange(ctx context.Context, tenant uuid.UUID, start, end time.Time) (map[int64]balance.Activity, error) {
	rows, err := r.tx.Query(ctx, `SELECT l.account_id, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id=$1 AND e.is_posted AND e.date BETWEEN $2 AND $3
GROUP BY l.account_id`, tenant, start, end)
	if err != nil {
		return nil, fmt.Errorf("reports: activity by account: %w", err)
	}
	defer rows.Close()

	activity := make(map[int64]balance.Activity)
	for rows.Next() {
		var (
			accountID int64
			a         balance.Activity
		)
		if err := rows.Scan(&accountID, &a.Debit, &a.Credit); err != nil {
			return nil, fmt.Errorf("reports: scan activity: %w", err)
		}
		activity[accountID] = a
	}
	return activity, rows.Err()
}

func (r *txReader) ActivityByTypeUntil(ctx context.Context, tenant uuid.UUID, accountType accounts.AccountType, until time.Time) (balance.Activity, error) {
	var a balance.Activity
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.id = l.account_id
WHERE e.tenant_id=$1 AND a.type=$2 AND e.is_posted AND e.date <= $3`,
		tenant, accountType, until).Scan(&a.Debit, &a.Credit)
	if err != nil {
		return balance.Activity{}, fmt.Errorf("reports: activity by type: %w", err)
	}
	return a, nil
}

func (r *txReader) LedgerLines(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) ([]LedgerLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT e.id, e.entry_number, e.date, e.source, e.memo, e.reference, l.debit, l.credit
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id=$1 AND l.account_id=$2 AND e.is_posted AND e.date BETWEEN $3 AND $4
ORDER BY e.date, e.entry_number, l.id`, tenant, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("reports: ledger lines: %w", err)
	}
	defer rows.Close()

	var out []LedgerLine
	for rows.Next() {
		var line LedgerLine
		if err := rows.Scan(&line.EntryID, &line.EntryNumber, &line.Date, &line.Source, &line.Memo, &line.Reference, &line.Debit, &line.Credit); err != nil {
			return nil, fmt.Errorf("reports: scan ledger line: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}
