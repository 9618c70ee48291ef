package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type categoryRow struct {
	CategoryID string              `json:"category_id"`
	UserID     string              `json:"user_id"`
	Name       string              `json:"name"`
	Kind       models.CategoryKind `json:"kind"`
	CreatedAt  time.Time           `json:"created_at"`
}

func (r categoryRow) model() *models.Category {
	return &models.Category{ID: r.CategoryID, UserID: r.UserID, Name: r.Name, Kind: r.Kind, CreatedAt: r.CreatedAt}
}

type CategoryStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewCategoryStore(db *surrealdb.DB, logger *common.Logger) *CategoryStore {
	return &CategoryStore{db: db, logger: logger}
}

func (s *CategoryStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	row, err := surrealdb.Select[categoryRow](ctx, s.db, surrealmodels.NewRecordID(tableCategory, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select category: %w", err)
	}
	if row == nil || row.CategoryID == "" {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return row.model(), nil
}

func (s *CategoryStore) SaveCategory(ctx context.Context, c *models.Category) error {
	row := categoryRow{CategoryID: c.ID, UserID: c.UserID, Name: c.Name, Kind: c.Kind, CreatedAt: c.CreatedAt}
	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableCategory, c.ID), "row": row}
	if err := upsertWithRetry(ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save category after retries: %w", err)
	}
	return nil
}

func (s *CategoryStore) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	sql := "SELECT * FROM category WHERE user_id = $user_id ORDER BY name ASC"
	rows, err := queryRows[categoryRow](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	out := make([]*models.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *CategoryStore) BalancingCategory(ctx context.Context, userID string) (*models.Category, error) {
	sql := "SELECT * FROM category WHERE user_id = $user_id AND kind = $kind ORDER BY created_at ASC LIMIT 1"
	vars := map[string]any{"user_id": userID, "kind": models.CategoryBalancingTransfer}
	rows, err := queryRows[categoryRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to find balancing category: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("balancing category for %s: %w", userID, models.ErrNotFound)
	}
	return rows[0].model(), nil
}

// Compile-time check
var _ interfaces.CategoryStore = (*CategoryStore)(nil)
