package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/ledger"
	"github.com/bobmcallan/tally/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// day returns January n, 2025. Tests run with "today" fixed to day(10).
func day(n int) date.Date { return date.New(2025, time.January, n) }

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  interfaces.StorageManager
	ledger *ledger.Service
	svc    *Service
	acct   *models.Account
	cat    *models.Category
}

func newFixture(t *testing.T, currency, starting string) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.NewManager(), currency, starting)
}

func newFixtureWithStore(t *testing.T, store interfaces.StorageManager, currency, starting string) *fixture {
	t.Helper()
	logger := common.NewSilentLogger()
	led := ledger.NewService(store, time.UTC, logger)
	svc := NewService(store, led, logger)
	svc.now = func() time.Time { return day(10).Start(time.UTC).Add(15 * time.Hour) }

	ctx := common.WithUserContext(context.Background(), &common.UserContext{UserID: "alice", Source: "test"})
	acct, err := led.CreateAccount(ctx, "Everyday", currency, dec(starting))
	require.NoError(t, err)
	cat, err := led.BalancingCategory(ctx)
	require.NoError(t, err)

	return &fixture{t: t, ctx: ctx, store: store, ledger: led, svc: svc, acct: acct, cat: cat}
}

// book writes a standard transaction at noon on d without recomputing.
func (f *fixture) book(id string, d date.Date, amount string) {
	f.t.Helper()
	amt := dec(amount)
	require.NoError(f.t, f.store.TransactionStore().SaveTransaction(f.ctx, &models.Transaction{
		ID:        id,
		AccountID: f.acct.ID,
		Amount:    amt,
		Type:      models.TypeForAmount(amt),
		Kind:      models.TransactionStandard,
		BookedAt:  d.Start(time.UTC).Add(12 * time.Hour),
	}))
}

// seedScenario books -50.00 on day 1 and -30.00 on day 2 and warms the snapshots.
func (f *fixture) seedScenario() {
	f.t.Helper()
	f.book("t1", day(1), "-50.00")
	f.book("t2", day(2), "-30.00")
	_, err := f.svc.RecomputeFrom(f.ctx, f.acct.ID, day(1), "")
	require.NoError(f.t, err)
}

func (f *fixture) balanceOn(d date.Date) decimal.Decimal {
	f.t.Helper()
	pb, err := f.ledger.BalanceOn(f.ctx, f.acct.ID, d)
	require.NoError(f.t, err)
	return pb.Balance
}

func (f *fixture) snapshot(d date.Date) decimal.Decimal {
	f.t.Helper()
	snap, err := f.store.SnapshotStore().GetSnapshot(f.ctx, f.acct.ID, d)
	require.NoError(f.t, err)
	return snap.Balance
}

func (f *fixture) currentBalance() decimal.Decimal {
	f.t.Helper()
	acct, err := f.store.AccountStore().GetAccount(f.ctx, f.acct.ID)
	require.NoError(f.t, err)
	return acct.CurrentBalance
}

// anchors returns every anchor on the account.
func (f *fixture) anchors() []*models.Transaction {
	f.t.Helper()
	all, err := f.store.TransactionStore().ListTransactions(f.ctx, f.acct.ID, interfaces.TransactionQuery{})
	require.NoError(f.t, err)
	var out []*models.Transaction
	for _, tx := range all {
		if tx.IsAnchor() {
			out = append(out, tx)
		}
	}
	return out
}

// snapshotBalances maps each snapshot day to its balance string.
func (f *fixture) snapshotBalances() map[string]string {
	f.t.Helper()
	snaps, err := f.store.SnapshotStore().ListSnapshots(f.ctx, f.acct.ID, date.NewRange(day(1), day(31)))
	require.NoError(f.t, err)
	out := make(map[string]string, len(snaps))
	for _, s := range snaps {
		out[s.Date.String()] = s.Balance.StringFixed(2)
	}
	return out
}
