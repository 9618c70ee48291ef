package transaction

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/ledger"
	"github.com/bobmcallan/tally/internal/services/reconcile"
	"github.com/bobmcallan/tally/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	ctx       context.Context
	store     interfaces.StorageManager
	ledger    *ledger.Service
	reconcile *reconcile.Service
	svc       *Service
	acct      *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.NewManager())
}

func newFixtureWithStore(t *testing.T, store interfaces.StorageManager) *fixture {
	t.Helper()
	logger := common.NewSilentLogger()
	led := ledger.NewService(store, time.UTC, logger)
	rec := reconcile.NewService(store, led, logger)
	svc := NewService(store, led, rec, logger)

	ctx := common.WithUserContext(context.Background(), &common.UserContext{UserID: "alice"})
	acct, err := led.CreateAccount(ctx, "Everyday", "USD", dec("1000.00"))
	require.NoError(t, err)
	return &fixture{ctx: ctx, store: store, ledger: led, reconcile: rec, svc: svc, acct: acct}
}

// daysAgo returns noon UTC n days before today.
func daysAgo(n int) time.Time {
	return date.Today(time.UTC).Add(-n).Start(time.UTC).Add(12 * time.Hour)
}

func TestAddTransactions(t *testing.T) {
	f := newFixture(t)
	groceries, err := f.ledger.CreateCategory(f.ctx, "Groceries")
	require.NoError(t, err)

	saved, rec, err := f.svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{
		{Amount: dec("-50.00"), BookedAt: daysAgo(3), CategoryID: groceries.ID, Description: " weekly shop "},
		{Amount: dec("200.00"), BookedAt: daysAgo(5)},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.True(t, strings.HasPrefix(saved[0].ID, "txn_"))
	assert.Equal(t, models.TransactionDebit, saved[0].Type)
	assert.Equal(t, models.TransactionCredit, saved[1].Type)
	assert.Equal(t, models.TransactionStandard, saved[0].Kind)
	assert.Equal(t, "weekly shop", saved[0].Description)

	require.NotNil(t, rec)
	assert.Equal(t, date.Of(daysAgo(5), time.UTC), rec.From)
	assert.Equal(t, date.Today(time.UTC), rec.To)
	assert.True(t, rec.CurrentBalance.Equal(dec("1150")))

	acct, err := f.ledger.GetAccount(f.ctx, f.acct.ID)
	require.NoError(t, err)
	assert.True(t, acct.CurrentBalance.Equal(dec("1150")))

	pb, err := f.ledger.BalanceOn(f.ctx, f.acct.ID, date.Of(daysAgo(4), time.UTC))
	require.NoError(t, err)
	assert.True(t, pb.FromSnapshot)
	assert.True(t, pb.Balance.Equal(dec("1200")))
}

func TestAddTransactions_ValidationWritesNothing(t *testing.T) {
	f := newFixture(t)
	balancing, err := f.ledger.BalancingCategory(f.ctx)
	require.NoError(t, err)

	cases := []struct {
		name string
		tx   models.Transaction
		want error
	}{
		{"zero amount", models.Transaction{Amount: decimal.Zero, BookedAt: daysAgo(1)}, models.ErrInvalidInput},
		{"missing booked_at", models.Transaction{Amount: dec("1")}, models.ErrInvalidInput},
		{"tomorrow", models.Transaction{Amount: dec("1"), BookedAt: daysAgo(-1)}, models.ErrInvalidInput},
		{"future", models.Transaction{Amount: dec("1"), BookedAt: time.Now().Add(72 * time.Hour)}, models.ErrInvalidInput},
		{"long description", models.Transaction{Amount: dec("1"), BookedAt: daysAgo(1), Description: strings.Repeat("x", 501)}, models.ErrInvalidInput},
		{"balancing category", models.Transaction{Amount: dec("1"), BookedAt: daysAgo(1), CategoryID: balancing.ID}, models.ErrInvalidCategory},
		{"unknown category", models.Transaction{Amount: dec("1"), BookedAt: daysAgo(1), CategoryID: "cat_missing"}, models.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			good := models.Transaction{Amount: dec("5"), BookedAt: daysAgo(2)}
			_, _, err := f.svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{good, tc.tx})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	list, err := f.svc.ListTransactions(f.ctx, f.acct.ID, date.Range{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, _, err = f.svc.AddTransactions(f.ctx, "acc_missing", []models.Transaction{{Amount: dec("1"), BookedAt: daysAgo(1)}})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteTransaction(t *testing.T) {
	f := newFixture(t)
	saved, _, err := f.svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{
		{Amount: dec("-50.00"), BookedAt: daysAgo(3)},
		{Amount: dec("-30.00"), BookedAt: daysAgo(2)},
	})
	require.NoError(t, err)

	rec, err := f.svc.DeleteTransaction(f.ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, date.Of(daysAgo(3), time.UTC), rec.From)
	assert.True(t, rec.CurrentBalance.Equal(dec("970")))

	pb, err := f.ledger.BalanceOn(f.ctx, f.acct.ID, date.Of(daysAgo(3), time.UTC))
	require.NoError(t, err)
	assert.True(t, pb.Balance.Equal(dec("1000")))

	_, err = f.svc.DeleteTransaction(f.ctx, saved[0].ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteTransaction_RefusesAnchor(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{{Amount: dec("-50.00"), BookedAt: daysAgo(3)}})
	require.NoError(t, err)
	balancing, err := f.ledger.BalancingCategory(f.ctx)
	require.NoError(t, err)

	res, err := f.reconcile.UpsertAnchor(f.ctx, f.acct.ID, date.Of(daysAgo(2), time.UTC), dec("900"), balancing.ID)
	require.NoError(t, err)

	_, err = f.svc.DeleteTransaction(f.ctx, res.Anchor.ID)
	assert.ErrorIs(t, err, models.ErrInvalidOperation)

	_, err = f.svc.Recategorize(f.ctx, res.Anchor.ID, "")
	assert.ErrorIs(t, err, models.ErrInvalidCategory)
}

func TestRecategorize(t *testing.T) {
	f := newFixture(t)
	saved, _, err := f.svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{{Amount: dec("-12.00"), BookedAt: daysAgo(1)}})
	require.NoError(t, err)
	dining, err := f.ledger.CreateCategory(f.ctx, "Dining")
	require.NoError(t, err)
	balancing, err := f.ledger.BalancingCategory(f.ctx)
	require.NoError(t, err)

	tx, err := f.svc.Recategorize(f.ctx, saved[0].ID, dining.ID)
	require.NoError(t, err)
	assert.Equal(t, dining.ID, tx.CategoryID)

	_, err = f.svc.Recategorize(f.ctx, saved[0].ID, balancing.ID)
	assert.ErrorIs(t, err, models.ErrInvalidCategory)

	bob := common.WithUserContext(f.ctx, &common.UserContext{UserID: "bob"})
	_, err = f.svc.Recategorize(bob, saved[0].ID, dining.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListTransactions_Range(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{
		{Amount: dec("-1"), BookedAt: daysAgo(6)},
		{Amount: dec("-2"), BookedAt: daysAgo(4)},
		{Amount: dec("-3"), BookedAt: daysAgo(2)},
	})
	require.NoError(t, err)

	r := date.NewRange(date.Of(daysAgo(5), time.UTC), date.Of(daysAgo(2), time.UTC))
	list, err := f.svc.ListTransactions(f.ctx, f.acct.ID, r)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Amount.Equal(dec("-2")))
	assert.True(t, list[1].Amount.Equal(dec("-3")))
}

// pinnedToday reports a fixed day as today.
type pinnedToday struct {
	*reconcile.Service
	today date.Date
}

func (p pinnedToday) Today() date.Date { return p.today }

func TestAddTransactions_RejectsDayAfterToday(t *testing.T) {
	f := newFixture(t)
	yesterday := date.Today(time.UTC).Add(-1)
	svc := NewService(f.store, f.ledger, pinnedToday{Service: f.reconcile, today: yesterday}, common.NewSilentLogger())

	_, _, err := svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{{Amount: dec("-100.00"), BookedAt: daysAgo(0)}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	list, err := svc.ListTransactions(f.ctx, f.acct.ID, date.Range{})
	require.NoError(t, err)
	assert.Empty(t, list, "a booking past today would never reach a snapshot")

	// The last minute of today is still today.
	lastMinute := yesterday.End(time.UTC).Add(-time.Minute)
	_, rec, err := svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{{Amount: dec("-100.00"), BookedAt: lastMinute}})
	require.NoError(t, err)
	assert.True(t, rec.CurrentBalance.Equal(dec("900")))
}

// racingTxStore runs onRead once, right after the first successful
// GetTransaction returns its row.
type racingTxStore struct {
	interfaces.TransactionStore
	fired  atomic.Bool
	onRead func()
}

func (r *racingTxStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := r.TransactionStore.GetTransaction(ctx, id)
	if err == nil && r.onRead != nil && r.fired.CompareAndSwap(false, true) {
		r.onRead()
	}
	return tx, err
}

type racingStore struct {
	interfaces.StorageManager
	txs *racingTxStore
}

func (r *racingStore) TransactionStore() interfaces.TransactionStore { return r.txs }

func TestRecategorize_ConcurrentDeleteIsNotUndone(t *testing.T) {
	base := memory.NewManager()
	txs := &racingTxStore{TransactionStore: base.TransactionStore()}
	f := newFixtureWithStore(t, &racingStore{StorageManager: base, txs: txs})

	saved, _, err := f.svc.AddTransactions(f.ctx, f.acct.ID, []models.Transaction{{Amount: dec("-40.00"), BookedAt: daysAgo(2)}})
	require.NoError(t, err)
	dining, err := f.ledger.CreateCategory(f.ctx, "Dining")
	require.NoError(t, err)

	// The delete lands between Recategorize's first read and its write.
	var deleteErr error
	txs.onRead = func() {
		_, deleteErr = f.svc.DeleteTransaction(f.ctx, saved[0].ID)
	}

	_, err = f.svc.Recategorize(f.ctx, saved[0].ID, dining.ID)
	require.NoError(t, deleteErr)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = base.TransactionStore().GetTransaction(f.ctx, saved[0].ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "deleted transaction came back")

	acct, err := f.ledger.GetAccount(f.ctx, f.acct.ID)
	require.NoError(t, err)
	sum, err := base.TransactionStore().SumAmounts(f.ctx, f.acct.ID, time.Time{}, "")
	require.NoError(t, err)
	assert.True(t, acct.CurrentBalance.Equal(acct.StartingBalance.Add(sum)))
	assert.True(t, acct.CurrentBalance.Equal(dec("1000")))
}
