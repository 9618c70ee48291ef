// Package storagetest holds the behaviour every StorageManager backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty StorageManager for one subtest.
type Factory func(t *testing.T) interfaces.StorageManager

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(day string, hour int) time.Time {
	return date.MustParse(day).Start(time.UTC).Add(time.Duration(hour) * time.Hour)
}

// Run exercises the store contract against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("AccountRoundTrip", func(t *testing.T) { testAccountRoundTrip(t, newStore(t)) })
	t.Run("CategoryLookup", func(t *testing.T) { testCategoryLookup(t, newStore(t)) })
	t.Run("TransactionSums", func(t *testing.T) { testTransactionSums(t, newStore(t)) })
	t.Run("AnchorQueries", func(t *testing.T) { testAnchorQueries(t, newStore(t)) })
	t.Run("SnapshotUpsert", func(t *testing.T) { testSnapshotUpsert(t, newStore(t)) })
}

func testAccountRoundTrip(t *testing.T, sm interfaces.StorageManager) {
	ctx := context.Background()
	store := sm.AccountStore()

	_, err := store.GetAccount(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	acct := &models.Account{
		ID:              "acc_1",
		UserID:          "alice",
		Name:            "Everyday",
		Currency:        "AUD",
		StartingBalance: dec("1000.00"),
		CurrentBalance:  dec("1000.00"),
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveAccount(ctx, acct))
	require.NoError(t, store.SetCurrentBalance(ctx, "acc_1", dec("920.55")))

	got, err := store.GetAccount(ctx, "acc_1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.True(t, got.StartingBalance.Equal(dec("1000")))
	assert.True(t, got.CurrentBalance.Equal(dec("920.55")), "current balance %s", got.CurrentBalance)

	list, err := store.ListAccounts(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = store.ListAccounts(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testCategoryLookup(t *testing.T, sm interfaces.StorageManager) {
	ctx := context.Background()
	store := sm.CategoryStore()

	_, err := store.BalancingCategory(ctx, "alice")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, store.SaveCategory(ctx, &models.Category{ID: "cat_food", UserID: "alice", Name: "Food", Kind: models.CategoryStandard}))
	require.NoError(t, store.SaveCategory(ctx, &models.Category{ID: "cat_bal", UserID: "alice", Name: models.BalancingTransferName, Kind: models.CategoryBalancingTransfer}))
	require.NoError(t, store.SaveCategory(ctx, &models.Category{ID: "cat_bob", UserID: "bob", Name: models.BalancingTransferName, Kind: models.CategoryBalancingTransfer}))

	got, err := store.BalancingCategory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "cat_bal", got.ID)

	cats, err := store.ListCategories(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	food, err := store.GetCategory(ctx, "cat_food")
	require.NoError(t, err)
	assert.False(t, food.IsBalancingTransfer())
}

func seedLedger(t *testing.T, store interfaces.TransactionStore) {
	t.Helper()
	ctx := context.Background()
	txs := []*models.Transaction{
		{ID: "t1", AccountID: "acc_1", Amount: dec("-50.00"), Kind: models.TransactionStandard, BookedAt: at("2025-01-01", 10)},
		{ID: "t2", AccountID: "acc_1", Amount: dec("-30.00"), Kind: models.TransactionStandard, BookedAt: at("2025-01-02", 23)},
		{ID: "t3", AccountID: "acc_1", Amount: dec("0.10"), Kind: models.TransactionStandard, BookedAt: at("2025-01-03", 0)},
		{ID: "t4", AccountID: "acc_1", Amount: dec("0.20"), Kind: models.TransactionStandard, BookedAt: at("2025-01-03", 1)},
		{ID: "other", AccountID: "acc_2", Amount: dec("999"), Kind: models.TransactionStandard, BookedAt: at("2025-01-01", 0)},
	}
	for _, tx := range txs {
		tx.Type = models.TypeForAmount(tx.Amount)
		require.NoError(t, store.SaveTransaction(ctx, tx))
	}
}

func testTransactionSums(t *testing.T, sm interfaces.StorageManager) {
	ctx := context.Background()
	store := sm.TransactionStore()
	seedLedger(t, store)

	sum, err := store.SumAmounts(ctx, "acc_1", date.MustParse("2025-01-01").End(time.UTC), "")
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("-50")), "sum %s", sum)

	sum, err = store.SumAmounts(ctx, "acc_1", date.MustParse("2025-01-02").End(time.UTC), "")
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("-80")), "sum %s", sum)

	// exact decimal: 0.1 + 0.2 is 0.3
	sum, err = store.SumAmounts(ctx, "acc_1", time.Time{}, "t1")
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("-29.70")), "sum %s", sum)

	list, err := store.ListTransactions(ctx, "acc_1", interfaces.TransactionQuery{From: at("2025-01-02", 0)})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "t2", list[0].ID)
	assert.Equal(t, "t4", list[2].ID)

	first, err := store.EarliestTransaction(ctx, "acc_1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "t1", first.ID)

	none, err := store.EarliestTransaction(ctx, "acc_empty")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.DeleteTransaction(ctx, "t1"))
	_, err = store.GetTransaction(ctx, "t1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func testAnchorQueries(t *testing.T, sm interfaces.StorageManager) {
	ctx := context.Background()
	store := sm.TransactionStore()
	seedLedger(t, store)

	for _, a := range []*models.Transaction{
		{ID: "a5", AccountID: "acc_1", Amount: dec("10"), Kind: models.TransactionAnchor, BookedAt: at("2025-01-05", 0)},
		{ID: "a9", AccountID: "acc_1", Amount: dec("-4"), Kind: models.TransactionAnchor, BookedAt: at("2025-01-09", 0)},
	} {
		a.Type = models.TypeForAmount(a.Amount)
		require.NoError(t, store.SaveTransaction(ctx, a))
	}

	day := date.MustParse("2025-01-05")
	got, err := store.FindAnchor(ctx, "acc_1", day.Start(time.UTC), day.End(time.UTC))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a5", got.ID)
	assert.True(t, got.IsAnchor())

	day = date.MustParse("2025-01-06")
	got, err = store.FindAnchor(ctx, "acc_1", day.Start(time.UTC), day.End(time.UTC))
	require.NoError(t, err)
	assert.Nil(t, got)

	next, err := store.NextAnchorAfter(ctx, "acc_1", date.MustParse("2025-01-03").End(time.UTC), "")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "a5", next.ID)

	// strictly after: an anchor at the boundary instant is not "next"
	next, err = store.NextAnchorAfter(ctx, "acc_1", at("2025-01-05", 0), "")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "a9", next.ID)

	next, err = store.NextAnchorAfter(ctx, "acc_1", date.MustParse("2025-01-03").End(time.UTC), "a5")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "a9", next.ID)

	next, err = store.NextAnchorAfter(ctx, "acc_1", at("2025-01-09", 0), "")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func testSnapshotUpsert(t *testing.T, sm interfaces.StorageManager) {
	ctx := context.Background()
	store := sm.SnapshotStore()

	none, err := store.LatestSnapshot(ctx, "acc_1")
	require.NoError(t, err)
	assert.Nil(t, none)

	for _, s := range []struct{ day, bal string }{
		{"2025-01-01", "950"},
		{"2025-01-02", "920"},
		{"2025-01-04", "915"},
	} {
		require.NoError(t, store.UpsertSnapshot(ctx, &models.BalanceSnapshot{
			AccountID: "acc_1", Date: date.MustParse(s.day), Balance: dec(s.bal), Currency: "AUD", ComputedAt: time.Now().UTC(),
		}))
	}
	// overwrite is idempotent per day
	require.NoError(t, store.UpsertSnapshot(ctx, &models.BalanceSnapshot{
		AccountID: "acc_1", Date: date.MustParse("2025-01-02"), Balance: dec("900.00"), Currency: "AUD", ComputedAt: time.Now().UTC(),
	}))

	got, err := store.GetSnapshot(ctx, "acc_1", date.MustParse("2025-01-02"))
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("900")), "balance %s", got.Balance)

	latest, err := store.LatestSnapshot(ctx, "acc_1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-01-04", latest.Date.String())

	onOrBefore, err := store.LatestSnapshotOnOrBefore(ctx, "acc_1", date.MustParse("2025-01-03"))
	require.NoError(t, err)
	require.NotNil(t, onOrBefore)
	assert.Equal(t, "2025-01-02", onOrBefore.Date.String())

	before, err := store.LatestSnapshotOnOrBefore(ctx, "acc_1", date.MustParse("2024-12-31"))
	require.NoError(t, err)
	assert.Nil(t, before)

	list, err := store.ListSnapshots(ctx, "acc_1", date.NewRange(date.MustParse("2025-01-02"), date.MustParse("2025-01-10")))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025-01-02", list[0].Date.String())

	n, err := store.DeleteSnapshots(ctx, "acc_1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	none, err = store.LatestSnapshot(ctx, "acc_1")
	require.NoError(t, err)
	assert.Nil(t, none)
}
