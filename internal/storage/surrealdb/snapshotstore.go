package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const snapshotSelectFields = "account_id, day, balance, currency, computed_at"

// snapshotRow stores day as YYYY-MM-DD so string ordering is chronological.
type snapshotRow struct {
	AccountID  string    `json:"account_id"`
	Day        string    `json:"day"`
	Balance    string    `json:"balance"`
	Currency   string    `json:"currency"`
	ComputedAt time.Time `json:"computed_at"`
}

func (r snapshotRow) model() (*models.BalanceSnapshot, error) {
	day, err := date.Parse(r.Day)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", r.AccountID, err)
	}
	balance, err := decimal.NewFromString(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s on %s: bad balance %q: %w", r.AccountID, r.Day, r.Balance, err)
	}
	return &models.BalanceSnapshot{
		AccountID:  r.AccountID,
		Date:       day,
		Balance:    balance,
		Currency:   r.Currency,
		ComputedAt: r.ComputedAt,
	}, nil
}

// snapshotID is the record key; one snapshot per account per day.
func snapshotID(accountID string, day date.Date) string {
	return accountID + "_" + day.String()
}

type SnapshotStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewSnapshotStore(db *surrealdb.DB, logger *common.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

func (s *SnapshotStore) UpsertSnapshot(ctx context.Context, snap *models.BalanceSnapshot) error {
	if snap.AccountID == "" || snap.Date.IsZero() {
		return fmt.Errorf("snapshot requires account and date")
	}
	row := snapshotRow{
		AccountID:  snap.AccountID,
		Day:        snap.Date.String(),
		Balance:    snap.Balance.String(),
		Currency:   snap.Currency,
		ComputedAt: snap.ComputedAt,
	}
	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableSnapshot, snapshotID(snap.AccountID, snap.Date)), "row": row}
	if err := upsertWithRetry(ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert snapshot after retries: %w", err)
	}
	return nil
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, accountID string, day date.Date) (*models.BalanceSnapshot, error) {
	row, err := surrealdb.Select[snapshotRow](ctx, s.db, surrealmodels.NewRecordID(tableSnapshot, snapshotID(accountID, day)))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select snapshot: %w", err)
	}
	if row == nil || row.AccountID == "" {
		return nil, fmt.Errorf("snapshot %s on %s: %w", accountID, day, models.ErrNotFound)
	}
	return row.model()
}

func (s *SnapshotStore) LatestSnapshot(ctx context.Context, accountID string) (*models.BalanceSnapshot, error) {
	sql := "SELECT " + snapshotSelectFields + " FROM balance_snapshot WHERE account_id = $account_id ORDER BY day DESC LIMIT 1"
	return s.first(ctx, sql, map[string]any{"account_id": accountID})
}

func (s *SnapshotStore) LatestSnapshotOnOrBefore(ctx context.Context, accountID string, day date.Date) (*models.BalanceSnapshot, error) {
	sql := "SELECT " + snapshotSelectFields + " FROM balance_snapshot WHERE account_id = $account_id AND day <= $day ORDER BY day DESC LIMIT 1"
	return s.first(ctx, sql, map[string]any{"account_id": accountID, "day": day.String()})
}

func (s *SnapshotStore) ListSnapshots(ctx context.Context, accountID string, r date.Range) ([]*models.BalanceSnapshot, error) {
	if r.Empty() {
		return nil, nil
	}
	sql := "SELECT " + snapshotSelectFields + " FROM balance_snapshot WHERE account_id = $account_id" +
		" AND day >= $from AND day <= $to ORDER BY day ASC"
	vars := map[string]any{"account_id": accountID, "from": r.From.String(), "to": r.To.String()}
	return s.query(ctx, sql, vars)
}

func (s *SnapshotStore) DeleteSnapshots(ctx context.Context, accountID string) (int, error) {
	sql := "DELETE balance_snapshot WHERE account_id = $account_id RETURN BEFORE"
	rows, err := queryRows[snapshotRow](ctx, s.db, sql, map[string]any{"account_id": accountID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return len(rows), nil
}

func (s *SnapshotStore) first(ctx context.Context, sql string, vars map[string]any) (*models.BalanceSnapshot, error) {
	snaps, err := s.query(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return snaps[0], nil
}

func (s *SnapshotStore) query(ctx context.Context, sql string, vars map[string]any) ([]*models.BalanceSnapshot, error) {
	rows, err := queryRows[snapshotRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	out := make([]*models.BalanceSnapshot, 0, len(rows))
	for _, r := range rows {
		snap, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Compile-time check
var _ interfaces.SnapshotStore = (*SnapshotStore)(nil)
