package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
)

// recompute resolves the window for a mutation on from and rewrites it.
// Caller holds the account lock.
func (s *Service) recompute(ctx context.Context, acct *models.Account, from date.Date, excludeID string) (*models.RecomputeResult, error) {
	window, err := s.resolveWindow(ctx, acct.ID, from, excludeID)
	if err != nil {
		return nil, err
	}
	return s.writeWindow(ctx, acct, window, excludeID)
}

// writeWindow upserts one end-of-day snapshot per day of window. Each day is
// summed from the ledger independently of the previous day.
func (s *Service) writeWindow(ctx context.Context, acct *models.Account, window date.Range, excludeID string) (*models.RecomputeResult, error) {
	loc := s.loc()
	txs := s.storage.TransactionStore()
	snaps := s.storage.SnapshotStore()

	result := &models.RecomputeResult{AccountID: acct.ID, From: window.From, To: window.To}
	computedAt := time.Now().UTC()

	for day := range window.Days() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum, err := txs.SumAmounts(ctx, acct.ID, day.End(loc), excludeID)
		if err != nil {
			return nil, s.windowFailed(acct.ID, day, result.Days, fmt.Errorf("failed to sum ledger for %s: %w", day, err))
		}
		snap := &models.BalanceSnapshot{
			AccountID:  acct.ID,
			Date:       day,
			Balance:    acct.StartingBalance.Add(sum),
			Currency:   acct.Currency,
			ComputedAt: computedAt,
		}
		if err := snaps.UpsertSnapshot(ctx, snap); err != nil {
			return nil, s.windowFailed(acct.ID, day, result.Days, fmt.Errorf("failed to upsert snapshot for %s: %w", day, err))
		}
		result.Days++
	}

	s.logger.Info().
		Str("account_id", acct.ID).
		Str("window_from", window.From.String()).
		Str("window_to", window.To.String()).
		Int("days", result.Days).
		Msg("Snapshots recomputed")
	return result, nil
}

// windowFailed logs a window that stopped part way. Days already written stay
// in place and current_balance is left alone; Rebuild restores consistency.
func (s *Service) windowFailed(accountID string, day date.Date, written int, err error) error {
	s.logger.Warn().
		Err(err).
		Str("account_id", accountID).
		Str("failed_day", day.String()).
		Int("days_written", written).
		Msg("Snapshot window incomplete, rebuild the account to recover")
	return err
}
