package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger that owns transactions and balance snapshots.
// StartingBalance is the fixed reference point for every sum; CurrentBalance
// is a denormalized cache of StartingBalance plus all transactions.
type Account struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	Currency        string          `json:"currency"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OwnedBy reports whether the account belongs to userID.
func (a *Account) OwnedBy(userID string) bool {
	return a != nil && a.UserID == userID
}
