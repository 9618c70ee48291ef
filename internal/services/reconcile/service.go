// Package reconcile keeps balance snapshots consistent with the transaction
// ledger. It resolves the window of days a mutation affects, solves anchor
// transactions against known real-world balances, and refreshes each
// account's cached current balance.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
)

// Compile-time interface check
var _ interfaces.ReconcileService = (*Service)(nil)

// Service implements ReconcileService
type Service struct {
	storage interfaces.StorageManager
	ledger  interfaces.LedgerService
	locks   *accountLocks
	now     func() time.Time
	logger  *common.Logger
}

// NewService creates a new reconcile service.
func NewService(storage interfaces.StorageManager, ledger interfaces.LedgerService, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		ledger:  ledger,
		locks:   newAccountLocks(),
		now:     time.Now,
		logger:  logger,
	}
}

func (s *Service) loc() *time.Location { return s.ledger.Location() }

// Today is the current calendar day in the ledger timezone. No snapshot is
// written past it.
func (s *Service) Today() date.Date { return date.Of(s.now(), s.loc()) }

// RecomputeFrom rewrites the snapshots of the window starting at day and
// refreshes the current balance. excludeID is left out of every sum, for
// callers recomputing around a transaction they are removing.
func (s *Service) RecomputeFrom(ctx context.Context, accountID string, day date.Date, excludeID string) (*models.RecomputeResult, error) {
	return s.Apply(ctx, accountID, day, excludeID, nil)
}

// Apply runs mutate, then the recompute from day and the balance refresh,
// while holding the account's lock. A nil mutate only recomputes.
func (s *Service) Apply(ctx context.Context, accountID string, day date.Date, excludeID string, mutate func(ctx context.Context) error) (*models.RecomputeResult, error) {
	if day.IsZero() {
		return nil, fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	}
	acct, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	if mutate != nil {
		if err := mutate(ctx); err != nil {
			return nil, err
		}
	}

	result, err := s.recompute(ctx, acct, day, excludeID)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, acct, result); err != nil {
		return nil, err
	}
	return result, nil
}

// WithAccount runs fn while holding the account's lock, without recomputing.
// It serialises edits that leave amounts alone against deletes and anchors.
func (s *Service) WithAccount(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	unlock := s.locks.lock(accountID)
	defer unlock()
	return fn(ctx)
}

// Rebuild drops every snapshot of the account and regenerates them from the
// first booked day through today, ignoring segment boundaries.
func (s *Service) Rebuild(ctx context.Context, accountID string) (*models.RecomputeResult, error) {
	acct, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	deleted, err := s.storage.SnapshotStore().DeleteSnapshots(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete snapshots: %w", err)
	}

	first, err := s.storage.TransactionStore().EarliestTransaction(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find earliest transaction: %w", err)
	}
	from := date.Of(acct.CreatedAt, s.loc())
	if first != nil {
		from = date.Of(first.BookedAt, s.loc())
	}

	result, err := s.writeWindow(ctx, acct, date.NewRange(from, s.Today()), "")
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, acct, result); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("account_id", accountID).
		Int("deleted", deleted).
		Int("days", result.Days).
		Msg("Snapshots rebuilt")
	return result, nil
}

// commit refreshes the account's cached current balance from the full
// history, every booked transaction included. It is the only writer of
// CurrentBalance and must run after every snapshot of the window has been
// written.
func (s *Service) commit(ctx context.Context, acct *models.Account, result *models.RecomputeResult) error {
	sum, err := s.storage.TransactionStore().SumAmounts(ctx, acct.ID, time.Time{}, "")
	if err != nil {
		return fmt.Errorf("failed to sum ledger: %w", err)
	}
	balance := acct.StartingBalance.Add(sum)
	if err := s.storage.AccountStore().SetCurrentBalance(ctx, acct.ID, balance); err != nil {
		return fmt.Errorf("failed to refresh current balance: %w", err)
	}
	result.CurrentBalance = balance
	return nil
}
