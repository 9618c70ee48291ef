// Package transaction provides user and import-driven edits to the ledger.
// Every edit that changes amounts runs through the reconcile service so the
// snapshot cache and current balance follow in the same unit of work.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.TransactionService = (*Service)(nil)

// maxAmount bounds a single transaction.
var maxAmount = decimal.New(1, 15)

// Service implements TransactionService
type Service struct {
	storage   interfaces.StorageManager
	ledger    interfaces.LedgerService
	reconcile interfaces.ReconcileService
	logger    *common.Logger
}

// NewService creates a new transaction service
func NewService(storage interfaces.StorageManager, ledger interfaces.LedgerService, reconcile interfaces.ReconcileService, logger *common.Logger) *Service {
	return &Service{
		storage:   storage,
		ledger:    ledger,
		reconcile: reconcile,
		logger:    logger,
	}
}

// validateTransaction checks that a transaction has valid field values. A
// booking may not fall on a day after today in loc, since no snapshot
// window reaches past today.
func validateTransaction(tx models.Transaction, today date.Date, loc *time.Location) error {
	if tx.Amount.IsZero() {
		return fmt.Errorf("amount must not be zero")
	}
	if tx.Amount.Abs().GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("amount exceeds maximum (1e15)")
	}
	if tx.BookedAt.IsZero() {
		return fmt.Errorf("booked_at is required")
	}
	if day := date.Of(tx.BookedAt, loc); day.After(today) {
		return fmt.Errorf("booked_at %s is after today (%s)", day, today)
	}
	if len(strings.TrimSpace(tx.Description)) > 500 {
		return fmt.Errorf("description exceeds 500 characters")
	}
	return nil
}

// checkCategory resolves a user category for a standard transaction.
// An empty id leaves the transaction uncategorised.
func (s *Service) checkCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	cat, err := s.ledger.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if cat.IsBalancingTransfer() {
		return fmt.Errorf("balancing transfer is reserved for anchors: %w", models.ErrInvalidCategory)
	}
	return nil
}

// AddTransactions validates and books txs on the account, then recomputes
// from the earliest booked day. Nothing is written if any transaction is invalid.
func (s *Service) AddTransactions(ctx context.Context, accountID string, txs []models.Transaction) ([]*models.Transaction, *models.RecomputeResult, error) {
	if len(txs) == 0 {
		return nil, nil, fmt.Errorf("%w: no transactions supplied", models.ErrInvalidInput)
	}
	if _, err := s.ledger.GetAccount(ctx, accountID); err != nil {
		return nil, nil, err
	}

	loc := s.ledger.Location()
	today := s.reconcile.Today()
	now := time.Now().UTC()
	var from date.Date
	saved := make([]*models.Transaction, 0, len(txs))

	for i, tx := range txs {
		if err := validateTransaction(tx, today, loc); err != nil {
			return nil, nil, fmt.Errorf("%w: transaction %d: %v", models.ErrInvalidInput, i, err)
		}
		if err := s.checkCategory(ctx, tx.CategoryID); err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		tx.ID = common.NewID("txn_")
		tx.AccountID = accountID
		tx.Type = models.TypeForAmount(tx.Amount)
		tx.Kind = models.TransactionStandard
		tx.Description = strings.TrimSpace(tx.Description)
		tx.CreatedAt = now
		tx.UpdatedAt = now
		saved = append(saved, &tx)

		if day := date.Of(tx.BookedAt, loc); from.IsZero() || day.Before(from) {
			from = day
		}
	}

	rec, err := s.reconcile.Apply(ctx, accountID, from, "", func(ctx context.Context) error {
		for _, tx := range saved {
			if err := s.storage.TransactionStore().SaveTransaction(ctx, tx); err != nil {
				return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("account_id", accountID).
		Int("count", len(saved)).
		Str("from", from.String()).
		Msg("Transactions added")
	return saved, rec, nil
}

// getOwned loads a transaction, hiding those on accounts the caller does not own.
func (s *Service) getOwned(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx, err := s.storage.TransactionStore().GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.GetAccount(ctx, tx.AccountID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrNotFound)
		}
		return nil, err
	}
	return tx, nil
}

// DeleteTransaction removes a standard transaction and recomputes from its day.
// Anchors are removed with DeleteAnchor.
func (s *Service) DeleteTransaction(ctx context.Context, transactionID string) (*models.RecomputeResult, error) {
	tx, err := s.getOwned(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.IsAnchor() {
		return nil, fmt.Errorf("transaction %s is an anchor, delete it as an anchor: %w", transactionID, models.ErrInvalidOperation)
	}

	day := date.Of(tx.BookedAt, s.ledger.Location())
	rec, err := s.reconcile.Apply(ctx, tx.AccountID, day, transactionID, func(ctx context.Context) error {
		return s.storage.TransactionStore().DeleteTransaction(ctx, transactionID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", tx.AccountID).Str("transaction_id", transactionID).Msg("Transaction deleted")
	return rec, nil
}

// Recategorize moves a standard transaction to another category. Amounts do
// not change, so no snapshot is touched. The row is re-read under the
// account lock so a concurrent delete is never undone.
func (s *Service) Recategorize(ctx context.Context, transactionID, categoryID string) (*models.Transaction, error) {
	tx, err := s.getOwned(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.IsAnchor() {
		return nil, fmt.Errorf("transaction %s is an anchor: %w", transactionID, models.ErrInvalidCategory)
	}
	if err := s.checkCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	var updated *models.Transaction
	err = s.reconcile.WithAccount(ctx, tx.AccountID, func(ctx context.Context) error {
		current, err := s.storage.TransactionStore().GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		current.CategoryID = categoryID
		current.UpdatedAt = time.Now().UTC()
		if err := s.storage.TransactionStore().SaveTransaction(ctx, current); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", transactionID).Str("category_id", categoryID).Msg("Transaction recategorized")
	return updated, nil
}

// ListTransactions returns the account's transactions booked within r. An
// empty range lists everything.
func (s *Service) ListTransactions(ctx context.Context, accountID string, r date.Range) ([]*models.Transaction, error) {
	if _, err := s.ledger.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	loc := s.ledger.Location()
	q := interfaces.TransactionQuery{}
	if !r.From.IsZero() {
		q.From = r.From.Start(loc)
	}
	if !r.To.IsZero() {
		q.To = r.To.End(loc)
	}
	return s.storage.TransactionStore().ListTransactions(ctx, accountID, q)
}
