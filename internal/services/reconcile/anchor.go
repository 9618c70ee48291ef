package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// anchorDescription labels system-authored anchors in transaction listings.
const anchorDescription = "Balancing transfer"

// UpsertAnchor pins the account's end-of-day balance on day to target.
//
// The ledger is summed through day without any existing anchor on that day;
// the anchor then carries exactly the difference. A difference below one
// minor unit of the account currency removes an existing anchor, or, when
// there is none, returns an AnchorNoOp result with ErrComputationNoOp.
func (s *Service) UpsertAnchor(ctx context.Context, accountID string, day date.Date, target decimal.Decimal, categoryID string) (*models.AnchorResult, error) {
	if day.IsZero() {
		return nil, fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	}
	if day.After(s.Today()) {
		return nil, fmt.Errorf("%w: anchor date %s is in the future", models.ErrInvalidInput, day)
	}

	acct, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cat, err := s.ledger.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !cat.IsBalancingTransfer() {
		return nil, fmt.Errorf("category %s is not a balancing transfer: %w", categoryID, models.ErrInvalidCategory)
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	loc := s.loc()
	txs := s.storage.TransactionStore()

	existing, err := txs.FindAnchor(ctx, accountID, day.Start(loc), day.End(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to find anchor: %w", err)
	}
	excludeID := ""
	if existing != nil {
		excludeID = existing.ID
	}

	sum, err := txs.SumAmounts(ctx, accountID, day.End(loc), excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger: %w", err)
	}
	difference := target.Sub(acct.StartingBalance.Add(sum))
	result := &models.AnchorResult{Difference: difference}

	if difference.Abs().LessThan(models.AnchorTolerance(acct.Currency)) {
		if existing == nil {
			result.Action = models.AnchorNoOp
			return result, models.ErrComputationNoOp
		}
		if err := txs.DeleteTransaction(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete anchor: %w", err)
		}
		result.Action = models.AnchorRemoved
		result.Updated = true
		result.Anchor = existing
		if err := s.finish(ctx, acct, day, existing.ID, result); err != nil {
			return nil, err
		}
		s.logAnchor(result, accountID, day)
		return result, nil
	}

	now := time.Now().UTC()
	anchor := existing
	switch {
	case existing != nil && existing.Amount.Equal(difference) && existing.CategoryID == cat.ID:
		result.Action = models.AnchorUnchanged
	case existing != nil:
		anchor.Amount = difference
		anchor.Type = models.TypeForAmount(difference)
		anchor.CategoryID = cat.ID
		anchor.UpdatedAt = now
		result.Action = models.AnchorUpdated
		result.Updated = true
	default:
		anchor = &models.Transaction{
			ID:          common.NewID("txn_"),
			AccountID:   accountID,
			Amount:      difference,
			Type:        models.TypeForAmount(difference),
			Kind:        models.TransactionAnchor,
			BookedAt:    day.Start(loc),
			CategoryID:  cat.ID,
			Description: anchorDescription,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		result.Action = models.AnchorCreated
	}

	if result.Action != models.AnchorUnchanged {
		if err := txs.SaveTransaction(ctx, anchor); err != nil {
			return nil, fmt.Errorf("failed to save anchor: %w", err)
		}
	}
	result.Anchor = anchor

	if err := s.finish(ctx, acct, day, "", result); err != nil {
		return nil, err
	}
	s.logAnchor(result, accountID, day)
	return result, nil
}

// DeleteAnchor removes an anchor and recomputes its window as though the
// anchor had never been written.
func (s *Service) DeleteAnchor(ctx context.Context, transactionID string) (*models.RecomputeResult, error) {
	tx, err := s.storage.TransactionStore().GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	acct, err := s.ledger.GetAccount(ctx, tx.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrNotFound)
		}
		return nil, err
	}
	if !tx.IsAnchor() {
		return nil, fmt.Errorf("transaction %s is not an anchor: %w", transactionID, models.ErrInvalidOperation)
	}

	unlock := s.locks.lock(acct.ID)
	defer unlock()

	// A concurrent caller may have removed it while we waited.
	if _, err := s.storage.TransactionStore().GetTransaction(ctx, transactionID); err != nil {
		return nil, err
	}
	if err := s.storage.TransactionStore().DeleteTransaction(ctx, transactionID); err != nil {
		return nil, fmt.Errorf("failed to delete anchor: %w", err)
	}

	day := date.Of(tx.BookedAt, s.loc())
	result, err := s.recompute(ctx, acct, day, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, acct, result); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("account_id", acct.ID).
		Str("transaction_id", transactionID).
		Str("date", day.String()).
		Msg("Anchor deleted")
	return result, nil
}

// finish recomputes from day and commits, attaching the recompute to result.
func (s *Service) finish(ctx context.Context, acct *models.Account, day date.Date, excludeID string, result *models.AnchorResult) error {
	rec, err := s.recompute(ctx, acct, day, excludeID)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, acct, rec); err != nil {
		return err
	}
	result.Recompute = rec
	return nil
}

func (s *Service) logAnchor(result *models.AnchorResult, accountID string, day date.Date) {
	s.logger.Info().
		Str("account_id", accountID).
		Str("date", day.String()).
		Str("action", string(result.Action)).
		Str("difference", result.Difference.String()).
		Msg("Anchor reconciled")
}
