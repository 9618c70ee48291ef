package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerService owns accounts, categories, ledger sums and point-in-time balances.
type LedgerService interface {
	CreateAccount(ctx context.Context, name, currency string, startingBalance decimal.Decimal) (*models.Account, error)
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	GetCategory(ctx context.Context, categoryID string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	// BalancingCategory returns the caller's balancing-transfer category, creating it on first use.
	BalancingCategory(ctx context.Context) (*models.Category, error)

	// SumAmounts returns the signed sum of the account's transactions booked
	// at or before asOf, excluding excludeID. A zero asOf sums everything.
	SumAmounts(ctx context.Context, accountID string, asOf time.Time, excludeID string) (decimal.Decimal, error)

	// BalanceOn resolves the balance at the end of day, snapshot first.
	BalanceOn(ctx context.Context, accountID string, day date.Date) (*models.PointBalance, error)
	ListSnapshots(ctx context.Context, accountID string, r date.Range) ([]*models.BalanceSnapshot, error)

	// Location is the calendar used to map instants to days.
	Location() *time.Location
}

// ReconcileService keeps the snapshot cache consistent with the ledger and manages anchors.
type ReconcileService interface {
	UpsertAnchor(ctx context.Context, accountID string, day date.Date, target decimal.Decimal, categoryID string) (*models.AnchorResult, error)
	DeleteAnchor(ctx context.Context, transactionID string) (*models.RecomputeResult, error)
	RecomputeFrom(ctx context.Context, accountID string, day date.Date, excludeID string) (*models.RecomputeResult, error)
	Rebuild(ctx context.Context, accountID string) (*models.RecomputeResult, error)

	// Apply runs mutate and the recompute from day as one unit of work on the account.
	Apply(ctx context.Context, accountID string, day date.Date, excludeID string, mutate func(ctx context.Context) error) (*models.RecomputeResult, error)
	// WithAccount runs fn under the account's lock without recomputing.
	WithAccount(ctx context.Context, accountID string, fn func(ctx context.Context) error) error

	// Today is the latest day a snapshot or booking may fall on.
	Today() date.Date
}

// TransactionService is the collaborator surface for user and import-driven edits.
type TransactionService interface {
	AddTransactions(ctx context.Context, accountID string, txs []models.Transaction) ([]*models.Transaction, *models.RecomputeResult, error)
	DeleteTransaction(ctx context.Context, transactionID string) (*models.RecomputeResult, error)
	Recategorize(ctx context.Context, transactionID, categoryID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, accountID string, r date.Range) ([]*models.Transaction, error)
}
