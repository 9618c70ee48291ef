// Package surrealdb provides SurrealDB-backed storage for accounts, the
// transaction ledger and balance snapshots.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

const (
	tableAccount  = "account"
	tableCategory = "category"
	tableTxn      = "ledger_txn"
	tableSnapshot = "balance_snapshot"
)

// schema is applied on connect. SurrealDB v3 errors on querying non-existent tables.
var schema = []string{
	"DEFINE TABLE IF NOT EXISTS account SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS category SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS ledger_txn SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS balance_snapshot SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS account_user ON account FIELDS user_id",
	"DEFINE INDEX IF NOT EXISTS category_user ON category FIELDS user_id, kind",
	"DEFINE INDEX IF NOT EXISTS ledger_txn_account ON ledger_txn FIELDS account_id, booked_at",
	"DEFINE INDEX IF NOT EXISTS ledger_txn_anchor ON ledger_txn FIELDS account_id, kind, booked_at",
	"DEFINE INDEX IF NOT EXISTS balance_snapshot_key ON balance_snapshot FIELDS account_id, day UNIQUE",
}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	accountStore     *AccountStore
	categoryStore    *CategoryStore
	transactionStore *TransactionStore
	snapshotStore    *SnapshotStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := NewManagerWithDB(ctx, db, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// NewManagerWithDB wires the stores onto an already selected database and applies the schema.
func NewManagerWithDB(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	for _, sql := range schema {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to apply schema %q: %w", sql, err)
		}
	}

	return &Manager{
		db:               db,
		logger:           logger,
		accountStore:     NewAccountStore(db, logger),
		categoryStore:    NewCategoryStore(db, logger),
		transactionStore: NewTransactionStore(db, logger),
		snapshotStore:    NewSnapshotStore(db, logger),
	}, nil
}

func (m *Manager) AccountStore() interfaces.AccountStore         { return m.accountStore }
func (m *Manager) CategoryStore() interfaces.CategoryStore       { return m.categoryStore }
func (m *Manager) TransactionStore() interfaces.TransactionStore { return m.transactionStore }
func (m *Manager) SnapshotStore() interfaces.SnapshotStore       { return m.snapshotStore }
func (m *Manager) Backend() string                               { return "surrealdb" }

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// queryRows runs sql and returns the rows of the first statement.
func queryRows[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// upsertWithRetry retries transient write conflicts, as SurrealDB reports
// them as errors rather than blocking.
func upsertWithRetry(ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := surrealdb.Query[any](ctx, db, sql, vars); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
