package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// AccountStore keeps accounts in memory. Values are copied in and out.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]models.Account)}
}

func (s *AccountStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, models.ErrNotFound)
	}
	return &a, nil
}

func (s *AccountStore) SaveAccount(_ context.Context, account *models.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
	return nil
}

func (s *AccountStore) ListAccounts(_ context.Context, userID string) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *AccountStore) SetCurrentBalance(_ context.Context, id string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, models.ErrNotFound)
	}
	a.CurrentBalance = balance
	a.UpdatedAt = time.Now()
	s.accounts[id] = a
	return nil
}
