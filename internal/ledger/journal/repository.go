package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/platform/db"
	"github.com/granary-books/granary/internal/shared"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed journal repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx runs fn inside a serializable transaction. The entry-number
// read-then-increment needs this isolation level; serialization failures
// and duplicate-number races surface as ErrNumberConflict for the service
// to retry.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	if err != nil {
		if db.IsSerializationFailure(err) || db.IsUniqueViolation(err, "uq_journal_entries_tenant_number") {
			return ErrNumberConflict
		}
		return err
	}
	return nil
}

const entryColumns = `id, tenant_id, entry_number, date, source, source_id, is_posted, is_reversing, reversed_entry_id, memo, reference, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.TenantID, &e.EntryNumber, &e.Date, &e.Source, &e.SourceID,
		&e.IsPosted, &e.IsReversing, &e.ReversedEntryID, &e.Memo, &e.Reference, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, tenant uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 ORDER BY entry_number DESC`, tenant)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("journal: list scan: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *repository) GetEntryWithLines(ctx context.Context, tenant uuid.UUID, entryID int64) (Entry, error) {
	return getEntryWithLines(ctx, r.pool, tenant, entryID)
}

// querier covers both pool and transaction access.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getEntryWithLines(ctx context.Context, q querier, tenant uuid.UUID, entryID int64) (Entry, error) {
	row := q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenant, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, fmt.Errorf("%w: journal entry %d", shared.ErrNotFound, entryID)
		}
		return Entry{}, fmt.Errorf("journal: get entry: %w", err)
	}
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, customer_id, vendor_id, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: get lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit,
			&line.CustomerID, &line.VendorID, &line.CreatedAt); err != nil {
			return Entry{}, fmt.Errorf("journal: line scan: %w", err)
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAccountsByID(ctx context.Context, tenant uuid.UUID, ids []int64) (map[int64]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, type, is_active FROM accounts WHERE tenant_id=$1 AND id = ANY($2)`, tenant, ids)
	if err != nil {
		return nil, fmt.Errorf("journal: load accounts: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]accounts.Account, len(ids))
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Type, &a.IsActive); err != nil {
			return nil, fmt.Errorf("journal: account scan: %w", err)
		}
		a.TenantID = tenant
		out[a.ID] = a
	}
	return out, rows.Err()
}

// NextEntryNumber derives the tenant's next number from the store rather
// than process memory, so multiple server instances cannot drift.
func (r *txRepository) NextEntryNumber(ctx context.Context, tenant uuid.UUID) (int64, error) {
	var number int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(entry_number), 0) + 1 FROM journal_entries WHERE tenant_id=$1`, tenant).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("journal: next entry number: %w", err)
	}
	return number, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, entry_number, date, source, source_id, is_posted, is_reversing, reversed_entry_id, memo, reference)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		entry.TenantID, entry.EntryNumber, entry.Date, entry.Source, entry.SourceID,
		entry.IsPosted, entry.IsReversing, entry.ReversedEntryID, entry.Memo, entry.Reference)
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return Entry{}, fmt.Errorf("journal: insert entry: %w", err)
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]Line, error) {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		var inserted Line
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, customer_id, vendor_id)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
			entryID, line.AccountID, line.Debit, line.Credit, line.CustomerID, line.VendorID).
			Scan(&inserted.ID, &inserted.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("journal: insert line: %w", err)
		}
		inserted.EntryID = entryID
		inserted.AccountID = line.AccountID
		inserted.Debit = line.Debit
		inserted.Credit = line.Credit
		inserted.CustomerID = line.CustomerID
		inserted.VendorID = line.VendorID
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]Line, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return nil, fmt.Errorf("journal: discard lines: %w", err)
	}
	return r.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, tenant uuid.UUID, entryID int64) (Entry, error) {
	return getEntryWithLines(ctx, r.tx, tenant, entryID)
}

func (r *txRepository) UpdateEntryHeader(ctx context.Context, entry Entry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET date=$3, memo=$4, reference=$5, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`, entry.TenantID, entry.ID, entry.Date, entry.Memo, entry.Reference)
	if err != nil {
		return fmt.Errorf("journal: update header: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal entry %d", shared.ErrNotFound, entry.ID)
	}
	return nil
}

func (r *txRepository) SetPosted(ctx context.Context, tenant uuid.UUID, entryID int64, posted bool) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET is_posted=$3, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`, tenant, entryID, posted)
	if err != nil {
		return fmt.Errorf("journal: set posted: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal entry %d", shared.ErrNotFound, entryID)
	}
	return nil
}
