package openitems

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/shared"
)

// Repository defines open-item persistence.
type Repository interface {
	Upsert(ctx context.Context, item OpenItem) (OpenItem, error)
	ApplyPayment(ctx context.Context, tenant uuid.UUID, id int64, amount decimal.Decimal) error
	ListOverdue(ctx context.Context, tenant uuid.UUID, kind Kind, asOf time.Time) ([]OpenItem, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed open-item repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Upsert inserts an open item or refreshes an existing document's amounts.
func (r *repository) Upsert(ctx context.Context, item OpenItem) (OpenItem, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO open_items (tenant_id, kind, party_id, party_name, document_number, issue_date, due_date, total, amount_due, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT ON CONSTRAINT uq_open_items_doc
DO UPDATE SET party_name=EXCLUDED.party_name, due_date=EXCLUDED.due_date, total=EXCLUDED.total, amount_due=EXCLUDED.amount_due, status=EXCLUDED.status, updated_at=NOW()
RETURNING id, created_at, updated_at`,
		item.TenantID, item.Kind, item.PartyID, item.PartyName, item.DocumentNumber,
		item.IssueDate, item.DueDate, item.Total, item.AmountDue, item.Status)
	if err := row.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return OpenItem{}, fmt.Errorf("openitems: upsert: %w", err)
	}
	return item, nil
}

// ApplyPayment reduces the amount due and marks the item paid when nothing
// remains outstanding.
func (r *repository) ApplyPayment(ctx context.Context, tenant uuid.UUID, id int64, amount decimal.Decimal) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE open_items
SET amount_due = amount_due - $3,
    status = CASE WHEN amount_due - $3 <= 0 THEN 'PAID' ELSE status END,
    updated_at = NOW()
WHERE tenant_id=$1 AND id=$2 AND status='OPEN'`, tenant, id, amount)
	if err != nil {
		return fmt.Errorf("openitems: apply payment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: open item %d", shared.ErrNotFound, id)
	}
	return nil
}

// ListOverdue returns open items of the kind that are due on or before asOf
// and still carry a positive amount due, ordered by due date.
func (r *repository) ListOverdue(ctx context.Context, tenant uuid.UUID, kind Kind, asOf time.Time) ([]OpenItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, kind, party_id, party_name, document_number, issue_date, due_date, total, amount_due, status, created_at, updated_at
FROM open_items
WHERE tenant_id=$1 AND kind=$2 AND status='OPEN' AND due_date <= $3 AND amount_due > 0
ORDER BY due_date, document_number`, tenant, kind, asOf)
	if err != nil {
		return nil, fmt.Errorf("openitems: list overdue: %w", err)
	}
	defer rows.Close()
	var items []OpenItem
	for rows.Next() {
		var item OpenItem
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Kind, &item.PartyID, &item.PartyName,
			&item.DocumentNumber, &item.IssueDate, &item.DueDate, &item.Total, &item.AmountDue,
			&item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("openitems: scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
