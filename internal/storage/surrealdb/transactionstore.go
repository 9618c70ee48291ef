package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// txnSelectFields lists ledger_txn fields, leaving out the record id.
const txnSelectFields = "txn_id, account_id, amount, type, kind, booked_at, category_id, description, created_at, updated_at"

// txnRow is the persisted shape of a ledger transaction. Amount is a decimal string
// so sums are computed exactly in Go rather than as floats in the database.
type txnRow struct {
	TxnID       string                 `json:"txn_id"`
	AccountID   string                 `json:"account_id"`
	Amount      string                 `json:"amount"`
	Type        models.TransactionType `json:"type"`
	Kind        models.TransactionKind `json:"kind"`
	BookedAt    time.Time              `json:"booked_at"`
	CategoryID  string                 `json:"category_id"`
	Description string                 `json:"description"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func newTxnRow(tx *models.Transaction) txnRow {
	return txnRow{
		TxnID:       tx.ID,
		AccountID:   tx.AccountID,
		Amount:      tx.Amount.String(),
		Type:        tx.Type,
		Kind:        tx.Kind,
		BookedAt:    tx.BookedAt.UTC(),
		CategoryID:  tx.CategoryID,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func (r txnRow) model() (*models.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: bad amount %q: %w", r.TxnID, r.Amount, err)
	}
	return &models.Transaction{
		ID:          r.TxnID,
		AccountID:   r.AccountID,
		Amount:      amount,
		Type:        r.Type,
		Kind:        r.Kind,
		BookedAt:    r.BookedAt,
		CategoryID:  r.CategoryID,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

type TransactionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewTransactionStore(db *surrealdb.DB, logger *common.Logger) *TransactionStore {
	return &TransactionStore{db: db, logger: logger}
}

func (s *TransactionStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	row, err := surrealdb.Select[txnRow](ctx, s.db, surrealmodels.NewRecordID(tableTxn, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select transaction: %w", err)
	}
	if row == nil || row.TxnID == "" {
		return nil, fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}
	return row.model()
}

func (s *TransactionStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableTxn, tx.ID), "row": newTxnRow(tx)}
	if err := upsertWithRetry(ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save transaction after retries: %w", err)
	}
	return nil
}

func (s *TransactionStore) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := surrealdb.Delete[txnRow](ctx, s.db, surrealmodels.NewRecordID(tableTxn, id)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (s *TransactionStore) ListTransactions(ctx context.Context, accountID string, q interfaces.TransactionQuery) ([]*models.Transaction, error) {
	var b strings.Builder
	b.WriteString("SELECT " + txnSelectFields + " FROM ledger_txn WHERE account_id = $account_id")
	vars := map[string]any{"account_id": accountID}
	if !q.From.IsZero() {
		b.WriteString(" AND booked_at >= $from")
		vars["from"] = q.From.UTC()
	}
	if !q.To.IsZero() {
		b.WriteString(" AND booked_at <= $to")
		vars["to"] = q.To.UTC()
	}
	b.WriteString(" ORDER BY booked_at ASC, txn_id ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT $limit")
		vars["limit"] = q.Limit
	}
	return s.queryTxns(ctx, b.String(), vars)
}

func (s *TransactionStore) SumAmounts(ctx context.Context, accountID string, asOf time.Time, excludeID string) (decimal.Decimal, error) {
	sql := "SELECT amount FROM ledger_txn WHERE account_id = $account_id AND txn_id != $exclude"
	vars := map[string]any{"account_id": accountID, "exclude": excludeID}
	if !asOf.IsZero() {
		sql += " AND booked_at <= $as_of"
		vars["as_of"] = asOf.UTC()
	}

	type amountRow struct {
		Amount string `json:"amount"`
	}
	rows, err := queryRows[amountRow](ctx, s.db, sql, vars)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	sum := decimal.Zero
	for _, r := range rows {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad stored amount %q: %w", r.Amount, err)
		}
		sum = sum.Add(amount)
	}
	return sum, nil
}

func (s *TransactionStore) FindAnchor(ctx context.Context, accountID string, from, to time.Time) (*models.Transaction, error) {
	sql := "SELECT " + txnSelectFields + " FROM ledger_txn WHERE account_id = $account_id AND kind = $kind" +
		" AND booked_at >= $from AND booked_at <= $to ORDER BY booked_at ASC, txn_id ASC LIMIT 1"
	vars := map[string]any{
		"account_id": accountID,
		"kind":       models.TransactionAnchor,
		"from":       from.UTC(),
		"to":         to.UTC(),
	}
	return s.first(ctx, sql, vars)
}

func (s *TransactionStore) NextAnchorAfter(ctx context.Context, accountID string, after time.Time, excludeID string) (*models.Transaction, error) {
	sql := "SELECT " + txnSelectFields + " FROM ledger_txn WHERE account_id = $account_id AND kind = $kind" +
		" AND booked_at > $after AND txn_id != $exclude ORDER BY booked_at ASC, txn_id ASC LIMIT 1"
	vars := map[string]any{
		"account_id": accountID,
		"kind":       models.TransactionAnchor,
		"after":      after.UTC(),
		"exclude":    excludeID,
	}
	return s.first(ctx, sql, vars)
}

func (s *TransactionStore) EarliestTransaction(ctx context.Context, accountID string) (*models.Transaction, error) {
	sql := "SELECT " + txnSelectFields + " FROM ledger_txn WHERE account_id = $account_id ORDER BY booked_at ASC, txn_id ASC LIMIT 1"
	return s.first(ctx, sql, map[string]any{"account_id": accountID})
}

// first returns the first row of sql, or nil when the result is empty.
func (s *TransactionStore) first(ctx context.Context, sql string, vars map[string]any) (*models.Transaction, error) {
	txs, err := s.queryTxns(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return txs[0], nil
}

func (s *TransactionStore) queryTxns(ctx context.Context, sql string, vars map[string]any) ([]*models.Transaction, error) {
	rows, err := queryRows[txnRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	out := make([]*models.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Compile-time check
var _ interfaces.TransactionStore = (*TransactionStore)(nil)
