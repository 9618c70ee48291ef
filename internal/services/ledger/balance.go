package ledger

import (
	"context"
	"fmt"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
)

// BalanceOn returns the balance at the end of day. The newest snapshot dated
// on or before day wins; without one the ledger is summed directly.
func (s *Service) BalanceOn(ctx context.Context, accountID string, day date.Date) (*models.PointBalance, error) {
	if day.IsZero() {
		return nil, fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	}
	acct, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	snap, err := s.storage.SnapshotStore().LatestSnapshotOnOrBefore(ctx, accountID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if snap != nil {
		return &models.PointBalance{
			AccountID:    accountID,
			Date:         day,
			Balance:      snap.Balance,
			Currency:     acct.Currency,
			FromSnapshot: true,
		}, nil
	}

	sum, err := s.storage.TransactionStore().SumAmounts(ctx, accountID, day.End(s.loc), "")
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return &models.PointBalance{
		AccountID: accountID,
		Date:      day,
		Balance:   acct.StartingBalance.Add(sum),
		Currency:  acct.Currency,
	}, nil
}

// ListSnapshots returns the cached end-of-day balances within r, oldest first.
func (s *Service) ListSnapshots(ctx context.Context, accountID string, r date.Range) ([]*models.BalanceSnapshot, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.storage.SnapshotStore().ListSnapshots(ctx, accountID, r)
}
