package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/balance"
	"github.com/granary-books/granary/internal/ledger/openitems"
)

// Reader exposes the queries a report may issue inside one snapshot. It
// embeds the balance repository so a snapshot-bound Calculator computes
// every balance from the same consistent view.
type Reader interface {
	balance.Repository
	ListAccounts(ctx context.Context, tenant uuid.UUID) ([]accounts.Account, error)
	ActivityByAccountInRange(ctx context.Context, tenant uuid.UUID, start, end time.Time) (map[int64]balance.Activity, error)
	ActivityByTypeUntil(ctx context.Context, tenant uuid.UUID, accountType accounts.AccountType, until time.Time) (balance.Activity, error)
	LedgerLines(ctx context.Context, tenant uuid.UUID, accountID int64, start, end time.Time) ([]LedgerLine, error)
}

// Repository opens consistent read snapshots for report building.
type Repository interface {
	WithSnapshot(ctx context.Context, fn func(context.Context, Reader) error) error
}

// MetricsPort counts report builds. Nil-safe at the call sites.
type MetricsPort interface {
	ReportBuilt(report string)
}

// Service composes the financial reports. Every sub-computation failure
// fails the whole report: silent zeros in financial output are worse than
// an error.
type Service struct {
	repo      Repository
	openItems openitems.Repository
	logger    *slog.Logger
	metrics   MetricsPort
}

// NewService constructs the report service.
func NewService(repo Repository, openItems openitems.Repository, logger *slog.Logger, metrics MetricsPort) *Service {
	return &Service{repo: repo, openItems: openItems, logger: logger, metrics: metrics}
}

func (s *Service) built(report string) {
	if s.metrics != nil {
		s.metrics.ReportBuilt(report)
	}
}

// TrialBalance computes every active account's balance as of the date and
// reclassifies them into debit and credit columns.
func (s *Service) TrialBalance(ctx context.Context, tenant uuid.UUID, asOf time.Time) (TrialBalance, error) {
	var tb TrialBalance
	err := s.repo.WithSnapshot(ctx, func(ctx context.Context, r Reader) error {
		active := func(a accounts.Account) bool { return a.IsActive }
		balances, err := balancesAsOf(ctx, r, tenant, asOf, active)
		if err != nil {
			return err
		}
		tb = BuildTrialBalance(asOf, balances)
		return nil
	})
	if err != nil {
		return TrialBalance{}, err
	}
	s.built("trial_balance")
	return tb, nil
}

// ProfitAndLoss sums revenue and expense activity over the range, with an
// optional comparison period merged per account. The two periods read from
// independent snapshots built concurrently.
func (s *Service) ProfitAndLoss(ctx context.Context, tenant uuid.UUID, start, end time.Time, compareStart, compareEnd *time.Time) (ProfitAndLoss, error) {
	var (
		accts    []accounts.Account
		activity map[int64]balance.Activity
		compare  map[int64]balance.Activity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.repo.WithSnapshot(gctx, func(ctx context.Context, r Reader) error {
			var err error
			if accts, err = r.ListAccounts(ctx, tenant); err != nil {
				return err
			}
			activity, err = r.ActivityByAccountInRange(ctx, tenant, start, end)
			return err
		})
	})
	if compareStart != nil && compareEnd != nil {
		cs, ce := *compareStart, *compareEnd
		g.Go(func() error {
			return s.repo.WithSnapshot(gctx, func(ctx context.Context, r Reader) error {
				var err error
				compare, err = r.ActivityByAccountInRange(ctx, tenant, cs, ce)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return ProfitAndLoss{}, err
	}

	pl := BuildProfitAndLoss(start, end, accts, activity, compare)
	if pl.Comparative {
		pl.CompareStart = *compareStart
		pl.CompareEnd = *compareEnd
	}
	s.built("profit_and_loss")
	return pl, nil
}

// BalanceSheetReport pairs the statement with an optional earlier one.
type BalanceSheetReport struct {
	Current BalanceSheet
	Compare *BalanceSheet
}

// BalanceSheet builds the statement of financial position, deriving
// retained earnings from cumulative revenue and expense activity through
// the date.
func (s *Service) BalanceSheet(ctx context.Context, tenant uuid.UUID, asOf time.Time, compareAsOf *time.Time) (BalanceSheetReport, error) {
	var report BalanceSheetReport

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bs, err := s.balanceSheetAsOf(gctx, tenant, asOf)
		if err != nil {
			return err
		}
		report.Current = bs
		return nil
	})
	if compareAsOf != nil {
		at := *compareAsOf
		g.Go(func() error {
			bs, err := s.balanceSheetAsOf(gctx, tenant, at)
			if err != nil {
				return err
			}
			report.Compare = &bs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BalanceSheetReport{}, err
	}
	s.built("balance_sheet")
	return report, nil
}

func (s *Service) balanceSheetAsOf(ctx context.Context, tenant uuid.UUID, asOf time.Time) (BalanceSheet, error) {
	var bs BalanceSheet
	err := s.repo.WithSnapshot(ctx, func(ctx context.Context, r Reader) error {
		// Deactivated accounts stay in the statement: soft-deleted accounts
		// keep their lines, and dropping their balances would break the
		// accounting equation against retained earnings.
		keep := func(a accounts.Account) bool {
			t := a.Type
			return t == accounts.AccountTypeAsset || t == accounts.AccountTypeLiability || t == accounts.AccountTypeEquity
		}
		balances, err := balancesAsOf(ctx, r, tenant, asOf, keep)
		if err != nil {
			return err
		}

		revenue, err := r.ActivityByTypeUntil(ctx, tenant, accounts.AccountTypeRevenue, asOf)
		if err != nil {
			return err
		}
		expense, err := r.ActivityByTypeUntil(ctx, tenant, accounts.AccountTypeExpense, asOf)
		if err != nil {
			return err
		}
		retained := revenue.Credit.Sub(revenue.Debit).Sub(expense.Debit.Sub(expense.Credit))

		bs = BuildBalanceSheet(asOf, balances, retained)
		return nil
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return bs, nil
}

// GeneralLedger lists each account's period activity with running balances.
// A non-nil accountID restricts the report to that account.
func (s *Service) GeneralLedger(ctx context.Context, tenant uuid.UUID, start, end time.Time, accountID *int64) (GeneralLedger, error) {
	gl := GeneralLedger{Start: start, End: end}
	err := s.repo.WithSnapshot(ctx, func(ctx context.Context, r Reader) error {
		calc := balance.NewCalculator(r)

		var accts []accounts.Account
		if accountID != nil {
			account, err := r.GetAccount(ctx, tenant, *accountID)
			if err != nil {
				return err
			}
			accts = []accounts.Account{account}
		} else {
			all, err := r.ListAccounts(ctx, tenant)
			if err != nil {
				return err
			}
			for _, account := range all {
				if account.IsActive {
					accts = append(accts, account)
				}
			}
		}

		dayBefore := start.AddDate(0, 0, -1)
		for _, account := range accts {
			opening, err := calc.BalanceAsOf(ctx, tenant, account.ID, dayBefore)
			if err != nil {
				return err
			}
			lines, err := r.LedgerLines(ctx, tenant, account.ID, start, end)
			if err != nil {
				return err
			}
			gl.Accounts = append(gl.Accounts, BuildGeneralLedgerAccount(account, opening, lines))
		}
		return nil
	})
	if err != nil {
		return GeneralLedger{}, err
	}
	s.built("general_ledger")
	return gl, nil
}

// ARAging buckets overdue customer invoices as of a date.
func (s *Service) ARAging(ctx context.Context, tenant uuid.UUID, asOf time.Time, periods []int) (Aging, error) {
	return s.aging(ctx, tenant, openitems.KindReceivable, asOf, periods)
}

// APAging buckets overdue vendor bills as of a date.
func (s *Service) APAging(ctx context.Context, tenant uuid.UUID, asOf time.Time, periods []int) (Aging, error) {
	return s.aging(ctx, tenant, openitems.KindPayable, asOf, periods)
}

func (s *Service) aging(ctx context.Context, tenant uuid.UUID, kind openitems.Kind, asOf time.Time, periods []int) (Aging, error) {
	items, err := s.openItems.ListOverdue(ctx, tenant, kind, asOf)
	if err != nil {
		return Aging{}, err
	}
	report := BuildAging(kind, asOf, periods, items)
	s.built("aging")
	return report, nil
}

// balancesAsOf computes balanceAsOf for every account the keep filter
// accepts, through a snapshot-bound calculator.
func balancesAsOf(ctx context.Context, r Reader, tenant uuid.UUID, asOf time.Time, keep func(accounts.Account) bool) ([]AccountBalance, error) {
	calc := balance.NewCalculator(r)
	accts, err := r.ListAccounts(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var out []AccountBalance
	for _, account := range accts {
		if keep != nil && !keep(account) {
			continue
		}
		bal, err := calc.BalanceAsOf(ctx, tenant, account.ID, asOf)
		if err != nil {
			return nil, err
		}
		out = append(out, AccountBalance{Account: account, Balance: bal})
	}
	return out, nil
}
