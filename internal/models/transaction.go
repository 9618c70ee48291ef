package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction, derived from the sign of its amount.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// TypeForAmount returns credit for positive (or zero) amounts and debit for negative ones.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionDebit
	}
	return TransactionCredit
}

// TransactionKind distinguishes user transactions from system-authored anchors.
type TransactionKind string

const (
	// TransactionStandard is entered by a user or imported.
	TransactionStandard TransactionKind = "standard"
	// TransactionAnchor is a synthetic balancing transfer that pins the
	// ledger balance on its day to a known real-world value.
	TransactionAnchor TransactionKind = "anchor"
)

// Transaction is a signed movement on an account.
// Positive amounts are credits, negative amounts debits.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Kind        TransactionKind `json:"kind"`
	BookedAt    time.Time       `json:"booked_at"`
	CategoryID  string          `json:"category_id,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsAnchor reports whether the transaction is a balancing-transfer anchor.
func (t *Transaction) IsAnchor() bool {
	return t != nil && t.Kind == TransactionAnchor
}

// CategoryKind tags a category with system meaning.
type CategoryKind string

const (
	CategoryStandard CategoryKind = "standard"
	// CategoryBalancingTransfer identifies anchors. One per user.
	CategoryBalancingTransfer CategoryKind = "balancing_transfer"
)

// BalancingTransferName is the display name given to a user's balancing-transfer category.
const BalancingTransferName = "Balancing Transfer"

// Category groups transactions for a user.
type Category struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Kind      CategoryKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsBalancingTransfer reports whether the category is the distinguished anchor category.
func (c *Category) IsBalancingTransfer() bool {
	return c != nil && c.Kind == CategoryBalancingTransfer
}
