package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/shared"
)

type memoryJournalRepo struct {
	accounts    map[int64]accounts.Account
	entries     map[int64]*Entry
	lines       map[int64][]Line
	nextEntryID int64
	nextLineID  int64
	numbers     map[uuid.UUID]int64

	// failNumberConflicts makes the next N NextEntryNumber transactions
	// fail after the fact, simulating a serialization conflict.
	failNumberConflicts int
}

func newMemoryJournalRepo() *memoryJournalRepo {
	return &memoryJournalRepo{
		accounts: make(map[int64]accounts.Account),
		entries:  make(map[int64]*Entry),
		lines:    make(map[int64][]Line),
		numbers:  make(map[uuid.UUID]int64),
	}
}

func (r *memoryJournalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.failNumberConflicts > 0 {
		r.failNumberConflicts--
		return ErrNumberConflict
	}
	return fn(ctx, r)
}

func (r *memoryJournalRepo) GetAccountsByID(ctx context.Context, tenant uuid.UUID, ids []int64) (map[int64]accounts.Account, error) {
	found := make(map[int64]accounts.Account)
	for _, id := range ids {
		if account, ok := r.accounts[id]; ok && account.TenantID == tenant {
			found[id] = account
		}
	}
	return found, nil
}

func (r *memoryJournalRepo) NextEntryNumber(ctx context.Context, tenant uuid.UUID) (int64, error) {
	r.numbers[tenant]++
	return r.numbers[tenant], nil
}

func (r *memoryJournalRepo) InsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	r.nextEntryID++
	entry.ID = r.nextEntryID
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	stored := entry
	r.entries[entry.ID] = &stored
	return entry, nil
}

func (r *memoryJournalRepo) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]Line, error) {
	var out []Line
	for _, in := range lines {
		r.nextLineID++
		out = append(out, Line{
			ID:         r.nextLineID,
			EntryID:    entryID,
			AccountID:  in.AccountID,
			Debit:      in.Debit,
			Credit:     in.Credit,
			CustomerID: in.CustomerID,
			VendorID:   in.VendorID,
		})
	}
	r.lines[entryID] = out
	return out, nil
}

func (r *memoryJournalRepo) ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]Line, error) {
	delete(r.lines, entryID)
	return r.InsertLines(ctx, entryID, lines)
}

func (r *memoryJournalRepo) GetEntryWithLines(ctx context.Context, tenant uuid.UUID, entryID int64) (Entry, error) {
	entry, ok := r.entries[entryID]
	if !ok || entry.TenantID != tenant {
		return Entry{}, fmt.Errorf("%w: entry %d", shared.ErrNotFound, entryID)
	}
	out := *entry
	out.Lines = r.lines[entryID]
	return out, nil
}

func (r *memoryJournalRepo) UpdateEntryHeader(ctx context.Context, entry Entry) error {
	stored, ok := r.entries[entry.ID]
	if !ok {
		return fmt.Errorf("%w: entry %d", shared.ErrNotFound, entry.ID)
	}
	lines := stored.Lines
	*stored = entry
	stored.Lines = lines
	return nil
}

func (r *memoryJournalRepo) SetPosted(ctx context.Context, tenant uuid.UUID, entryID int64, posted bool) error {
	entry, ok := r.entries[entryID]
	if !ok || entry.TenantID != tenant {
		return fmt.Errorf("%w: entry %d", shared.ErrNotFound, entryID)
	}
	entry.IsPosted = posted
	return nil
}

func (r *memoryJournalRepo) List(ctx context.Context, tenant uuid.UUID) ([]Entry, error) {
	var out []Entry
	for _, entry := range r.entries {
		if entry.TenantID == tenant {
			e := *entry
			e.Lines = r.lines[e.ID]
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryNumber > out[j].EntryNumber })
	return out, nil
}

var journalTenant = uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000002")

func newTestJournalService() (*Service, *memoryJournalRepo) {
	repo := newMemoryJournalRepo()
	repo.accounts[1] = accounts.Account{ID: 1, TenantID: journalTenant, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, IsActive: true}
	repo.accounts[2] = accounts.Account{ID: 2, TenantID: journalTenant, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, IsActive: true}
	repo.accounts[3] = accounts.Account{ID: 3, TenantID: journalTenant, Code: "1900", Name: "Dormant", Type: accounts.AccountTypeAsset, IsActive: false}
	return NewService(repo, slog.Default(), nil), repo
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func balancedInput() PostingInput {
	return PostingInput{
		TenantID: journalTenant,
		Date:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Source:   SourceManual,
		Memo:     "cash sale",
		Lines: []LineInput{
			{AccountID: 1, Debit: amt("500")},
			{AccountID: 2, Credit: amt("500")},
		},
	}
}

func TestPostEntry(t *testing.T) {
	svc, _ := newTestJournalService()

	entry, err := svc.Post(context.Background(), balancedInput())
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.EntryNumber)
	require.True(t, entry.IsPosted)
	require.Len(t, entry.Lines, 2)
	require.True(t, entry.Lines[0].Debit.Equal(amt("500")))
	require.True(t, entry.Lines[1].Credit.Equal(amt("500")))
}

func TestPostEntryNumbersAreSequential(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		entry, err := svc.Post(ctx, balancedInput())
		require.NoError(t, err)
		require.Equal(t, want, entry.EntryNumber)
	}
}

func TestPostUnbalancedEntry(t *testing.T) {
	svc, _ := newTestJournalService()

	in := balancedInput()
	in.Lines[1].Credit = amt("400")
	_, err := svc.Post(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	require.ErrorContains(t, err, "debits")
	require.ErrorContains(t, err, "credits")
}

func TestPostEntryLineShape(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	in := balancedInput()
	in.Lines = in.Lines[:1]
	_, err := svc.Post(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	in = balancedInput()
	in.Lines[0].Credit = amt("500")
	_, err = svc.Post(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	in = balancedInput()
	in.Lines[0].Debit = decimal.Zero
	_, err = svc.Post(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	in = balancedInput()
	in.Lines[0].Debit = amt("-500")
	_, err = svc.Post(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestPostEntryUnknownAccount(t *testing.T) {
	svc, _ := newTestJournalService()

	in := balancedInput()
	in.Lines[0].AccountID = 42
	_, err := svc.Post(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	require.ErrorContains(t, err, "account 42 does not exist")
}

func TestPostEntryAccountCheckPrecedesBalanceCheck(t *testing.T) {
	svc, _ := newTestJournalService()

	// Unbalanced and pointing at a missing account: the account error wins.
	in := balancedInput()
	in.Lines[0].AccountID = 42
	in.Lines[1].Credit = amt("400")
	_, err := svc.Post(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	require.ErrorContains(t, err, "account 42 does not exist")
	require.NotContains(t, err.Error(), "does not balance")
}

func TestPostEntryInactiveAccount(t *testing.T) {
	svc, _ := newTestJournalService()

	in := balancedInput()
	in.Lines[0].AccountID = 3
	_, err := svc.Post(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	require.ErrorContains(t, err, "account 1900 is inactive")
}

func TestPostEntryRoundsLineAmounts(t *testing.T) {
	svc, _ := newTestJournalService()

	in := balancedInput()
	in.Lines[0].Debit = amt("500.004")
	in.Lines[1].Credit = amt("499.996")
	entry, err := svc.Post(context.Background(), in)
	require.NoError(t, err)
	require.True(t, entry.Lines[0].Debit.Equal(amt("500.00")))
	require.True(t, entry.Lines[1].Credit.Equal(amt("500.00")))
}

func TestPostRetriesNumberConflict(t *testing.T) {
	svc, repo := newTestJournalService()
	repo.failNumberConflicts = 2

	entry, err := svc.Post(context.Background(), balancedInput())
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.EntryNumber)
}

func TestPostGivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, repo := newTestJournalService()
	repo.failNumberConflicts = maxPostAttempts

	_, err := svc.Post(context.Background(), balancedInput())
	require.ErrorIs(t, err, shared.ErrInternal)
}

func TestUpdateManualEntry(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	entry, err := svc.Post(ctx, balancedInput())
	require.NoError(t, err)

	memo := "corrected memo"
	updated, err := svc.Update(ctx, journalTenant, entry.ID, UpdateInput{
		Memo: &memo,
		Lines: []LineInput{
			{AccountID: 1, Debit: amt("750")},
			{AccountID: 2, Credit: amt("750")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "corrected memo", updated.Memo)
	require.Len(t, updated.Lines, 2)
	require.True(t, updated.Lines[0].Debit.Equal(amt("750")))
	require.Equal(t, entry.EntryNumber, updated.EntryNumber)
}

func TestUpdateRejectsUnbalancedReplacement(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	entry, err := svc.Post(ctx, balancedInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, journalTenant, entry.ID, UpdateInput{
		Lines: []LineInput{
			{AccountID: 1, Debit: amt("750")},
			{AccountID: 2, Credit: amt("600")},
		},
	})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	// The original lines survive the rejected replacement.
	kept, err := svc.Get(ctx, journalTenant, entry.ID)
	require.NoError(t, err)
	require.True(t, kept.Lines[0].Debit.Equal(amt("500")))
}

func TestUpdateNonManualEntryRejected(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	in := balancedInput()
	in.Source = SourceInvoice
	entry, err := svc.Post(ctx, in)
	require.NoError(t, err)

	memo := "tamper"
	_, err = svc.Update(ctx, journalTenant, entry.ID, UpdateInput{Memo: &memo})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.Void(ctx, journalTenant, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestVoidEntry(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	entry, err := svc.Post(ctx, balancedInput())
	require.NoError(t, err)

	voided, err := svc.Void(ctx, journalTenant, entry.ID)
	require.NoError(t, err)
	require.False(t, voided.IsPosted)
	require.Len(t, voided.Lines, 2)

	_, err = svc.Void(ctx, journalTenant, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestReverseEntry(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	original, err := svc.Post(ctx, balancedInput())
	require.NoError(t, err)

	reverseDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	reversal, err := svc.Reverse(ctx, journalTenant, original.ID, &reverseDate)
	require.NoError(t, err)

	require.True(t, reversal.IsReversing)
	require.Equal(t, original.ID, *reversal.ReversedEntryID)
	require.Equal(t, SourceManual, reversal.Source)
	require.Equal(t, int64(2), reversal.EntryNumber)
	require.Equal(t, reverseDate, reversal.Date)
	require.Equal(t, "Reversal of entry #1", reversal.Memo)

	// Debits and credits are swapped line for line.
	require.Equal(t, original.Lines[0].AccountID, reversal.Lines[0].AccountID)
	require.True(t, reversal.Lines[0].Credit.Equal(original.Lines[0].Debit))
	require.True(t, reversal.Lines[0].Debit.Equal(original.Lines[0].Credit))
	require.True(t, reversal.Lines[1].Debit.Equal(original.Lines[1].Credit))

	// The original is untouched.
	kept, err := svc.Get(ctx, journalTenant, original.ID)
	require.NoError(t, err)
	require.True(t, kept.IsPosted)
	require.False(t, kept.IsReversing)
}

func TestReverseVoidEntryRejected(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	entry, err := svc.Post(ctx, balancedInput())
	require.NoError(t, err)
	_, err = svc.Void(ctx, journalTenant, entry.ID)
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, journalTenant, entry.ID, nil)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestReverseTwiceNegatesItself(t *testing.T) {
	svc, _ := newTestJournalService()
	ctx := context.Background()

	original, err := svc.Post(ctx, balancedInput())
	require.NoError(t, err)

	first, err := svc.Reverse(ctx, journalTenant, original.ID, nil)
	require.NoError(t, err)
	second, err := svc.Reverse(ctx, journalTenant, first.ID, nil)
	require.NoError(t, err)

	for i := range original.Lines {
		require.True(t, second.Lines[i].Debit.Equal(original.Lines[i].Debit))
		require.True(t, second.Lines[i].Credit.Equal(original.Lines[i].Credit))
	}
}
