package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/shared"
)

// maxPostAttempts bounds retries when concurrent posts collide on the
// entry-number assignment.
const maxPostAttempts = 3

// ErrNumberConflict signals that the entry-number read-then-write raced
// with a concurrent post. The repository maps serialization failures and
// unique violations on the number index to this; the service retries with
// a fresh transaction.
var ErrNumberConflict = errors.New("journal: entry number conflict")

// Repository abstracts journal persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, tenant uuid.UUID) ([]Entry, error)
	GetEntryWithLines(ctx context.Context, tenant uuid.UUID, entryID int64) (Entry, error)
}

// TxRepository exposes the operations available within a posting transaction.
type TxRepository interface {
	GetAccountsByID(ctx context.Context, tenant uuid.UUID, ids []int64) (map[int64]accounts.Account, error)
	NextEntryNumber(ctx context.Context, tenant uuid.UUID) (int64, error)
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]Line, error)
	ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]Line, error)
	GetEntryWithLines(ctx context.Context, tenant uuid.UUID, entryID int64) (Entry, error)
	UpdateEntryHeader(ctx context.Context, entry Entry) error
	SetPosted(ctx context.Context, tenant uuid.UUID, entryID int64, posted bool) error
}

// MetricsPort counts posting activity. Nil-safe at the call sites.
type MetricsPort interface {
	EntryPosted(source string)
	EntryVoided()
	EntryReversed()
}

// Service is the sole write path into the ledger. External collaborators
// pass pre-balanced lines through Post; corrections go through Void and
// Reverse, never through direct line mutation.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the posting service.
func NewService(repo Repository, logger *slog.Logger, metrics MetricsPort) *Service {
	return &Service{repo: repo, logger: logger, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates and atomically creates a journal entry with its lines,
// assigning the tenant's next entry number. Number collisions under
// concurrent posting are retried with a fresh read before surfacing an
// internal error.
func (s *Service) Post(ctx context.Context, in PostingInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	in.Lines = roundLines(in.Lines)

	var entry Entry
	var err error
	for attempt := 1; attempt <= maxPostAttempts; attempt++ {
		entry, err = s.postOnce(ctx, in)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrNumberConflict) {
			return Entry{}, err
		}
		s.logger.Warn("entry number conflict, retrying",
			slog.String("tenant", in.TenantID.String()),
			slog.Int("attempt", attempt))
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: posting retries exhausted", shared.ErrInternal)
	}

	if s.metrics != nil {
		s.metrics.EntryPosted(string(in.Source))
	}
	s.logger.Info("journal entry posted",
		slog.String("tenant", in.TenantID.String()),
		slog.Int64("entry_number", entry.EntryNumber),
		slog.String("source", string(in.Source)))
	return entry, nil
}

func (s *Service) postOnce(ctx context.Context, in PostingInput) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkAccounts(ctx, tx, in.TenantID, in.Lines); err != nil {
			return err
		}
		if err := validateLineSet(in.Lines); err != nil {
			return err
		}
		number, err := tx.NextEntryNumber(ctx, in.TenantID)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, Entry{
			TenantID:    in.TenantID,
			EntryNumber: number,
			Date:        in.Date,
			Source:      in.Source,
			SourceID:    in.SourceID,
			IsPosted:    true,
			Memo:        in.Memo,
			Reference:   in.Reference,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, in.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// checkAccounts verifies every referenced account belongs to the tenant and
// is active, naming the offending account in the error.
func (s *Service) checkAccounts(ctx context.Context, tx TxRepository, tenant uuid.UUID, lines []LineInput) error {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	found, err := tx.GetAccountsByID(ctx, tenant, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		account, ok := found[id]
		if !ok {
			return fmt.Errorf("%w: account %d does not exist", shared.ErrInvalidArgument, id)
		}
		if !account.IsActive {
			return fmt.Errorf("%w: account %s is inactive", shared.ErrInvalidArgument, account.Code)
		}
	}
	return nil
}

// UpdateInput carries the fields a manual entry may change. Nil leaves the
// field untouched; a non-nil Lines replaces the entire line set.
type UpdateInput struct {
	Date      *time.Time
	Memo      *string
	Reference *string
	Lines     []LineInput
}

// Update edits a manual journal entry. Entries created from external
// documents are rejected; their owning document is the only correction path.
func (s *Service) Update(ctx context.Context, tenant uuid.UUID, entryID int64, in UpdateInput) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, tenant, entryID)
		if err != nil {
			return err
		}
		if !current.Source.Editable() {
			return fmt.Errorf("%w: %s entries cannot be edited directly", shared.ErrInvalidArgument, current.Source)
		}
		if in.Date != nil {
			current.Date = *in.Date
		}
		if in.Memo != nil {
			current.Memo = *in.Memo
		}
		if in.Reference != nil {
			current.Reference = *in.Reference
		}
		if in.Lines != nil {
			replacement := PostingInput{
				TenantID: tenant,
				Date:     current.Date,
				Source:   current.Source,
				Lines:    in.Lines,
			}
			if err := replacement.Validate(); err != nil {
				return err
			}
			rounded := roundLines(in.Lines)
			if err := s.checkAccounts(ctx, tx, tenant, rounded); err != nil {
				return err
			}
			if err := validateLineSet(rounded); err != nil {
				return err
			}
			lines, err := tx.ReplaceLines(ctx, current.ID, rounded)
			if err != nil {
				return err
			}
			current.Lines = lines
		}
		current.UpdatedAt = s.now()
		if err := tx.UpdateEntryHeader(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Void marks a manual entry as not posted. The entry and its lines are kept
// so ledger history remains inspectable.
func (s *Service) Void(ctx context.Context, tenant uuid.UUID, entryID int64) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, tenant, entryID)
		if err != nil {
			return err
		}
		if !current.Source.Editable() {
			return fmt.Errorf("%w: %s entries are voided through their source document", shared.ErrInvalidArgument, current.Source)
		}
		if !current.IsPosted {
			return fmt.Errorf("%w: entry %d is already void", shared.ErrInvalidArgument, current.EntryNumber)
		}
		if err := tx.SetPosted(ctx, tenant, current.ID, false); err != nil {
			return err
		}
		current.IsPosted = false
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.EntryVoided()
	}
	s.logger.Info("journal entry voided",
		slog.String("tenant", tenant.String()),
		slog.Int64("entry_number", entry.EntryNumber))
	return entry, nil
}

// Reverse creates a new entry that negates the target entry's effect by
// swapping every line's debit and credit. The original is left untouched;
// reports see the superposition of both.
func (s *Service) Reverse(ctx context.Context, tenant uuid.UUID, entryID int64, reverseDate *time.Time) (Entry, error) {
	var reversal Entry
	var err error
	for attempt := 1; attempt <= maxPostAttempts; attempt++ {
		reversal, err = s.reverseOnce(ctx, tenant, entryID, reverseDate)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrNumberConflict) {
			return Entry{}, err
		}
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: reversal retries exhausted", shared.ErrInternal)
	}

	if s.metrics != nil {
		s.metrics.EntryReversed()
	}
	s.logger.Info("journal entry reversed",
		slog.String("tenant", tenant.String()),
		slog.Int64("reversal_number", reversal.EntryNumber))
	return reversal, nil
}

func (s *Service) reverseOnce(ctx context.Context, tenant uuid.UUID, entryID int64, reverseDate *time.Time) (Entry, error) {
	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryWithLines(ctx, tenant, entryID)
		if err != nil {
			return err
		}
		if !original.IsPosted {
			return fmt.Errorf("%w: entry %d is void and has no effect to reverse", shared.ErrInvalidArgument, original.EntryNumber)
		}
		date := s.now()
		if reverseDate != nil {
			date = *reverseDate
		}
		number, err := tx.NextEntryNumber(ctx, tenant)
		if err != nil {
			return err
		}
		originalID := original.ID
		inserted, err := tx.InsertEntry(ctx, Entry{
			TenantID:        tenant,
			EntryNumber:     number,
			Date:            date,
			Source:          SourceManual,
			IsPosted:        true,
			IsReversing:     true,
			ReversedEntryID: &originalID,
			Memo:            fmt.Sprintf("Reversal of entry #%d", original.EntryNumber),
			Reference:       original.Reference,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, reverseLines(original.Lines))
		if err != nil {
			return err
		}
		inserted.Lines = lines
		reversal = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return reversal, nil
}

func reverseLines(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID:  line.AccountID,
			Debit:      line.Credit,
			Credit:     line.Debit,
			CustomerID: line.CustomerID,
			VendorID:   line.VendorID,
		})
	}
	return out
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, tenant uuid.UUID, entryID int64) (Entry, error) {
	return s.repo.GetEntryWithLines(ctx, tenant, entryID)
}

// List returns the tenant's entries, newest number first.
func (s *Service) List(ctx context.Context, tenant uuid.UUID) ([]Entry, error) {
	return s.repo.List(ctx, tenant)
}
