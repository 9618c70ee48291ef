// Package interfaces defines service and storage contracts for tally
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	AccountStore() AccountStore
	CategoryStore() CategoryStore
	TransactionStore() TransactionStore
	SnapshotStore() SnapshotStore

	// Backend names the active backend ("surrealdb" or "memory").
	Backend() string

	Close() error
}

// AccountStore persists accounts. Lookups of missing ids return models.ErrNotFound.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	ListAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	SetCurrentBalance(ctx context.Context, id string, balance decimal.Decimal) error
}

// CategoryStore persists categories.
type CategoryStore interface {
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	SaveCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context, userID string) ([]*models.Category, error)
	// BalancingCategory returns the user's balancing-transfer category, or models.ErrNotFound.
	BalancingCategory(ctx context.Context, userID string) (*models.Category, error)
}

// TransactionQuery narrows ListTransactions. Zero times are unbounded.
type TransactionQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// TransactionStore persists the transaction ledger.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	// SaveTransaction inserts or overwrites by ID.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	// ListTransactions returns transactions ordered by BookedAt ascending.
	ListTransactions(ctx context.Context, accountID string, q TransactionQuery) ([]*models.Transaction, error)

	// SumAmounts sums amounts booked at or before asOf, skipping excludeID.
	// A zero asOf sums the full history.
	SumAmounts(ctx context.Context, accountID string, asOf time.Time, excludeID string) (decimal.Decimal, error)

	// FindAnchor returns the anchor booked within [from, to], or nil when there is none.
	FindAnchor(ctx context.Context, accountID string, from, to time.Time) (*models.Transaction, error)
	// NextAnchorAfter returns the earliest anchor booked strictly after the
	// given instant, skipping excludeID, or nil when there is none.
	NextAnchorAfter(ctx context.Context, accountID string, after time.Time, excludeID string) (*models.Transaction, error)
	// EarliestTransaction returns the first booked transaction, or nil for an empty ledger.
	EarliestTransaction(ctx context.Context, accountID string) (*models.Transaction, error)
}

// SnapshotStore persists per-day balance snapshots keyed by (account, day).
type SnapshotStore interface {
	// UpsertSnapshot overwrites the snapshot for (AccountID, Date) or inserts it.
	UpsertSnapshot(ctx context.Context, snapshot *models.BalanceSnapshot) error
	GetSnapshot(ctx context.Context, accountID string, day date.Date) (*models.BalanceSnapshot, error)
	// LatestSnapshot returns the most recent snapshot, or nil when none exist.
	LatestSnapshot(ctx context.Context, accountID string) (*models.BalanceSnapshot, error)
	// LatestSnapshotOnOrBefore returns the newest snapshot dated <= day, or nil.
	LatestSnapshotOnOrBefore(ctx context.Context, accountID string, day date.Date) (*models.BalanceSnapshot, error)
	ListSnapshots(ctx context.Context, accountID string, r date.Range) ([]*models.BalanceSnapshot, error)
	// DeleteSnapshots removes every snapshot of the account and returns the count.
	DeleteSnapshots(ctx context.Context, accountID string) (int, error)
}
