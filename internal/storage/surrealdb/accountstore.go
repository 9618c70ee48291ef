package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// accountRow is the persisted shape of an account. Amounts are decimal strings.
type accountRow struct {
	AccountID       string    `json:"account_id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Currency        string    `json:"currency"`
	StartingBalance string    `json:"starting_balance"`
	CurrentBalance  string    `json:"current_balance"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r accountRow) model() (*models.Account, error) {
	starting, err := decimal.NewFromString(r.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("account %s: bad starting balance %q: %w", r.AccountID, r.StartingBalance, err)
	}
	current, err := decimal.NewFromString(r.CurrentBalance)
	if err != nil {
		return nil, fmt.Errorf("account %s: bad current balance %q: %w", r.AccountID, r.CurrentBalance, err)
	}
	return &models.Account{
		ID:              r.AccountID,
		UserID:          r.UserID,
		Name:            r.Name,
		Currency:        r.Currency,
		StartingBalance: starting,
		CurrentBalance:  current,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

type AccountStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewAccountStore(db *surrealdb.DB, logger *common.Logger) *AccountStore {
	return &AccountStore{db: db, logger: logger}
}

func (s *AccountStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row, err := surrealdb.Select[accountRow](ctx, s.db, surrealmodels.NewRecordID(tableAccount, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select account: %w", err)
	}
	if row == nil || row.AccountID == "" {
		return nil, fmt.Errorf("account %s: %w", id, models.ErrNotFound)
	}
	return row.model()
}

func (s *AccountStore) SaveAccount(ctx context.Context, a *models.Account) error {
	row := accountRow{
		AccountID:       a.ID,
		UserID:          a.UserID,
		Name:            a.Name,
		Currency:        a.Currency,
		StartingBalance: a.StartingBalance.String(),
		CurrentBalance:  a.CurrentBalance.String(),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableAccount, a.ID), "row": row}
	if err := upsertWithRetry(ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save account after retries: %w", err)
	}
	return nil
}

func (s *AccountStore) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	sql := "SELECT * FROM account WHERE user_id = $user_id ORDER BY created_at ASC"
	rows, err := queryRows[accountRow](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	out := make([]*models.Account, 0, len(rows))
	for _, r := range rows {
		a, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *AccountStore) SetCurrentBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	sql := "UPDATE $rid SET current_balance = $balance, updated_at = $now RETURN AFTER"
	vars := map[string]any{
		"rid":     surrealmodels.NewRecordID(tableAccount, id),
		"balance": balance.String(),
		"now":     time.Now().UTC(),
	}
	rows, err := queryRows[accountRow](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to update current balance: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("account %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Compile-time check
var _ interfaces.AccountStore = (*AccountStore)(nil)
