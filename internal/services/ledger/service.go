// Package ledger provides accounts, categories, ledger sums and point-in-time balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService
type Service struct {
	storage interfaces.StorageManager
	loc     *time.Location
	logger  *common.Logger
}

// NewService creates a new ledger service. loc is the calendar used to map
// instants to days; nil means UTC.
func NewService(storage interfaces.StorageManager, loc *time.Location, logger *common.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		storage: storage,
		loc:     loc,
		logger:  logger,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

func validateName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is required", models.ErrInvalidInput, kind)
	}
	if len(name) > 100 {
		return "", fmt.Errorf("%w: %s name exceeds 100 characters", models.ErrInvalidInput, kind)
	}
	return name, nil
}

// CreateAccount opens an account for the caller. The starting balance is
// fixed for the life of the account.
func (s *Service) CreateAccount(ctx context.Context, name, currency string, startingBalance decimal.Decimal) (*models.Account, error) {
	name, err := validateName("account", name)
	if err != nil {
		return nil, err
	}
	currency = models.NormalizeCurrency(currency)
	if !models.ValidCurrency(currency) {
		return nil, fmt.Errorf("%w: unknown currency %q", models.ErrInvalidInput, currency)
	}

	now := time.Now().UTC()
	acct := &models.Account{
		ID:              common.NewID("acc_"),
		UserID:          common.ResolveUserID(ctx),
		Name:            name,
		Currency:        currency,
		StartingBalance: startingBalance,
		CurrentBalance:  startingBalance,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.storage.AccountStore().SaveAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.logger.Info().Str("account_id", acct.ID).Str("currency", currency).Msg("Account created")
	return acct, nil
}

// GetAccount returns the account if it exists and belongs to the caller.
func (s *Service) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	acct, err := s.storage.AccountStore().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.OwnedBy(common.ResolveUserID(ctx)) {
		return nil, fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
	}
	return acct, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.storage.AccountStore().ListAccounts(ctx, common.ResolveUserID(ctx))
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name, err := validateName("category", name)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(name, models.BalancingTransferName) {
		return nil, fmt.Errorf("%w: %q is reserved", models.ErrInvalidCategory, name)
	}

	cat := &models.Category{
		ID:        common.NewID("cat_"),
		UserID:    common.ResolveUserID(ctx),
		Name:      name,
		Kind:      models.CategoryStandard,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.CategoryStore().SaveCategory(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}
	return cat, nil
}

// GetCategory returns the category if it exists and belongs to the caller.
func (s *Service) GetCategory(ctx context.Context, categoryID string) (*models.Category, error) {
	cat, err := s.storage.CategoryStore().GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if cat.UserID != common.ResolveUserID(ctx) {
		return nil, fmt.Errorf("category %s: %w", categoryID, models.ErrNotFound)
	}
	return cat, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.storage.CategoryStore().ListCategories(ctx, common.ResolveUserID(ctx))
}

// balancingCategoryID is fixed per user, so concurrent first calls upsert
// the same row instead of creating two.
func balancingCategoryID(userID string) string {
	return "cat_balancing_" + userID
}

// BalancingCategory returns the caller's balancing-transfer category,
// creating it the first time it is asked for.
func (s *Service) BalancingCategory(ctx context.Context) (*models.Category, error) {
	userID := common.ResolveUserID(ctx)
	cat, err := s.storage.CategoryStore().BalancingCategory(ctx, userID)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	cat = &models.Category{
		ID:        balancingCategoryID(userID),
		UserID:    userID,
		Name:      models.BalancingTransferName,
		Kind:      models.CategoryBalancingTransfer,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.CategoryStore().SaveCategory(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to create balancing category: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("category_id", cat.ID).Msg("Balancing transfer category created")
	return cat, nil
}

// SumAmounts returns the signed sum of the account's transactions booked at
// or before asOf, skipping excludeID. A zero asOf sums the full history.
func (s *Service) SumAmounts(ctx context.Context, accountID string, asOf time.Time, excludeID string) (decimal.Decimal, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	return s.storage.TransactionStore().SumAmounts(ctx, accountID, asOf, excludeID)
}
