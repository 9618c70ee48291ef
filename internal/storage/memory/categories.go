package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/tally/internal/models"
)

// CategoryStore keeps categories in memory.
type CategoryStore struct {
	mu         sync.RWMutex
	categories map[string]models.Category
}

func NewCategoryStore() *CategoryStore {
	return &CategoryStore{categories: make(map[string]models.Category)}
}

func (s *CategoryStore) GetCategory(_ context.Context, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return &c, nil
}

func (s *CategoryStore) SaveCategory(_ context.Context, category *models.Category) error {
	if category.ID == "" {
		return fmt.Errorf("category ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = *category
	return nil
}

func (s *CategoryStore) ListCategories(_ context.Context, userID string) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CategoryStore) BalancingCategory(_ context.Context, userID string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.UserID == userID && c.IsBalancingTransfer() {
			c := c
			return &c, nil
		}
	}
	return nil, fmt.Errorf("balancing category for %s: %w", userID, models.ErrNotFound)
}
