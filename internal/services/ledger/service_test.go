package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (*Service, *memory.Manager) {
	t.Helper()
	store := memory.NewManager()
	return NewService(store, time.UTC, common.NewSilentLogger()), store
}

func asUser(userID string) context.Context {
	return common.WithUserContext(context.Background(), &common.UserContext{UserID: userID, Source: "test"})
}

func TestCreateAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asUser("alice")

	acct, err := svc.CreateAccount(ctx, "  Everyday ", "aud", dec("1000.00"))
	require.NoError(t, err)
	assert.Equal(t, "Everyday", acct.Name)
	assert.Equal(t, "AUD", acct.Currency)
	assert.Equal(t, "alice", acct.UserID)
	assert.True(t, acct.CurrentBalance.Equal(dec("1000")))

	_, err = svc.CreateAccount(ctx, "", "AUD", decimal.Zero)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.CreateAccount(ctx, "Bad", "XYZ", decimal.Zero)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGetAccount_Ownership(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.CreateAccount(asUser("alice"), "Everyday", "AUD", decimal.Zero)
	require.NoError(t, err)

	_, err = svc.GetAccount(asUser("bob"), acct.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.GetAccount(asUser("alice"), "acc_missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := svc.GetAccount(asUser("alice"), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
}

func TestBalancingCategory_CreatedOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asUser("alice")

	first, err := svc.BalancingCategory(ctx)
	require.NoError(t, err)
	assert.True(t, first.IsBalancingTransfer())
	assert.Equal(t, models.BalancingTransferName, first.Name)

	second, err := svc.BalancingCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.BalancingCategory(asUser("bob"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

// barrierCategories holds every BalancingCategory lookup until all callers
// have looked, so each of them sees the category missing.
type barrierCategories struct {
	interfaces.CategoryStore
	lookups *sync.WaitGroup
}

func (b *barrierCategories) BalancingCategory(ctx context.Context, userID string) (*models.Category, error) {
	cat, err := b.CategoryStore.BalancingCategory(ctx, userID)
	b.lookups.Done()
	b.lookups.Wait()
	return cat, err
}

type barrierStore struct {
	interfaces.StorageManager
	cats *barrierCategories
}

func (b *barrierStore) CategoryStore() interfaces.CategoryStore { return b.cats }

func TestBalancingCategory_ConcurrentFirstUse(t *testing.T) {
	const callers = 8
	base := memory.NewManager()
	lookups := &sync.WaitGroup{}
	lookups.Add(callers)
	store := &barrierStore{StorageManager: base, cats: &barrierCategories{CategoryStore: base.CategoryStore(), lookups: lookups}}
	svc := NewService(store, time.UTC, common.NewSilentLogger())
	ctx := asUser("alice")

	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cat, err := svc.BalancingCategory(ctx)
			if assert.NoError(t, err) {
				ids[i] = cat.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	cats, err := base.CategoryStore().ListCategories(ctx, "alice")
	require.NoError(t, err)
	balancing := 0
	for _, c := range cats {
		if c.IsBalancingTransfer() {
			balancing++
		}
	}
	assert.Equal(t, 1, balancing)
}

func TestCreateCategory_ReservedName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateCategory(asUser("alice"), "balancing transfer")
	assert.True(t, errors.Is(err, models.ErrInvalidCategory))

	cat, err := svc.CreateCategory(asUser("alice"), "Groceries")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryStandard, cat.Kind)

	_, err = svc.GetCategory(asUser("bob"), cat.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSumAmounts(t *testing.T) {
	svc, store := newTestService(t)
	ctx := asUser("alice")

	acct, err := svc.CreateAccount(ctx, "Everyday", "USD", dec("100"))
	require.NoError(t, err)

	for i, amt := range []string{"-10.10", "0.10", "0.20"} {
		require.NoError(t, store.TransactionStore().SaveTransaction(ctx, &models.Transaction{
			ID:        common.NewID("txn_"),
			AccountID: acct.ID,
			Amount:    dec(amt),
			Kind:      models.TransactionStandard,
			BookedAt:  date.New(2025, time.March, 1+i).Start(time.UTC).Add(12 * time.Hour),
		}))
	}

	sum, err := svc.SumAmounts(ctx, acct.ID, time.Time{}, "")
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("-9.80")), "sum %s", sum)

	sum, err = svc.SumAmounts(ctx, acct.ID, date.New(2025, time.March, 1).End(time.UTC), "")
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("-10.10")), "sum %s", sum)

	_, err = svc.SumAmounts(asUser("bob"), acct.ID, time.Time{}, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBalanceOn_ColdAndWarm(t *testing.T) {
	svc, store := newTestService(t)
	ctx := asUser("alice")

	acct, err := svc.CreateAccount(ctx, "Everyday", "USD", dec("100"))
	require.NoError(t, err)
	require.NoError(t, store.TransactionStore().SaveTransaction(ctx, &models.Transaction{
		ID: "t1", AccountID: acct.ID, Amount: dec("-25"), Kind: models.TransactionStandard,
		BookedAt: date.MustParse("2025-03-02").Start(time.UTC).Add(9 * time.Hour),
	}))

	// cold path: no snapshot yet
	pb, err := svc.BalanceOn(ctx, acct.ID, date.MustParse("2025-03-01"))
	require.NoError(t, err)
	assert.False(t, pb.FromSnapshot)
	assert.True(t, pb.Balance.Equal(dec("100")))

	pb, err = svc.BalanceOn(ctx, acct.ID, date.MustParse("2025-03-02"))
	require.NoError(t, err)
	assert.True(t, pb.Balance.Equal(dec("75")))

	require.NoError(t, store.SnapshotStore().UpsertSnapshot(ctx, &models.BalanceSnapshot{
		AccountID: acct.ID, Date: date.MustParse("2025-03-02"), Balance: dec("75"), Currency: "USD",
	}))

	pb, err = svc.BalanceOn(ctx, acct.ID, date.MustParse("2025-03-05"))
	require.NoError(t, err)
	assert.True(t, pb.FromSnapshot)
	assert.True(t, pb.Balance.Equal(dec("75")))
	assert.Equal(t, "2025-03-05", pb.Date.String())

	_, err = svc.BalanceOn(ctx, acct.ID, date.Date{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
