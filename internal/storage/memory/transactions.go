package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// TransactionStore keeps the ledger in memory.
type TransactionStore struct {
	mu  sync.RWMutex
	txs map[string]models.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[string]models.Transaction)}
}

func (s *TransactionStore) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}
	return &tx, nil
}

func (s *TransactionStore) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = *tx
	return nil
}

func (s *TransactionStore) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txs, id)
	return nil
}

// accountTxs returns the account's transactions sorted by BookedAt. Caller holds the lock.
func (s *TransactionStore) accountTxs(accountID string, keep func(*models.Transaction) bool) []*models.Transaction {
	var out []*models.Transaction
	for _, tx := range s.txs {
		if tx.AccountID != accountID {
			continue
		}
		tx := tx
		if keep != nil && !keep(&tx) {
			continue
		}
		out = append(out, &tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookedAt.Equal(out[j].BookedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].BookedAt.Before(out[j].BookedAt)
	})
	return out
}

func (s *TransactionStore) ListTransactions(_ context.Context, accountID string, q interfaces.TransactionQuery) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.accountTxs(accountID, func(tx *models.Transaction) bool {
		if !q.From.IsZero() && tx.BookedAt.Before(q.From) {
			return false
		}
		if !q.To.IsZero() && tx.BookedAt.After(q.To) {
			return false
		}
		return true
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *TransactionStore) SumAmounts(_ context.Context, accountID string, asOf time.Time, excludeID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, tx := range s.txs {
		if tx.AccountID != accountID || tx.ID == excludeID {
			continue
		}
		if !asOf.IsZero() && tx.BookedAt.After(asOf) {
			continue
		}
		sum = sum.Add(tx.Amount)
	}
	return sum, nil
}

func (s *TransactionStore) FindAnchor(_ context.Context, accountID string, from, to time.Time) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := s.accountTxs(accountID, func(tx *models.Transaction) bool {
		return tx.IsAnchor() && !tx.BookedAt.Before(from) && !tx.BookedAt.After(to)
	})
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (s *TransactionStore) NextAnchorAfter(_ context.Context, accountID string, after time.Time, excludeID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := s.accountTxs(accountID, func(tx *models.Transaction) bool {
		return tx.IsAnchor() && tx.ID != excludeID && tx.BookedAt.After(after)
	})
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (s *TransactionStore) EarliestTransaction(_ context.Context, accountID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.accountTxs(accountID, nil)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}
