package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSnapshots rejects the upsert for one day.
type failingSnapshots struct {
	interfaces.SnapshotStore
	failOn date.Date
}

func (f *failingSnapshots) UpsertSnapshot(ctx context.Context, snap *models.BalanceSnapshot) error {
	if snap.Date == f.failOn {
		return errors.New("disk full")
	}
	return f.SnapshotStore.UpsertSnapshot(ctx, snap)
}

type failingStore struct {
	interfaces.StorageManager
	snaps *failingSnapshots
}

func (f *failingStore) SnapshotStore() interfaces.SnapshotStore { return f.snaps }

func TestLedgerConsistency(t *testing.T) {
	f := newFixture(t, "AUD", "250.00")
	amounts := map[int][]string{
		1: {"-12.34", "100.00"},
		3: {"-0.10", "-0.20"},
		4: {"-87.66"},
		8: {"1500.00", "-1499.99"},
	}
	for d, list := range amounts {
		for i, amt := range list {
			f.book(date.New(2025, time.January, d).String()+"_"+string(rune('a'+i)), day(d), amt)
		}
	}

	rec, err := f.svc.RecomputeFrom(f.ctx, f.acct.ID, day(1), "")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Days)

	for d := range date.NewRange(day(1), day(10)).Days() {
		sum, err := f.store.TransactionStore().SumAmounts(f.ctx, f.acct.ID, d.End(time.UTC), "")
		require.NoError(t, err)
		want := f.acct.StartingBalance.Add(sum)
		assert.True(t, f.balanceOn(d).Equal(want), "day %s: got %s want %s", d, f.balanceOn(d), want)
	}
	// 250 - 12.34 + 100 - 0.10 - 0.20 - 87.66 + 1500 - 1499.99
	assert.True(t, f.currentBalance().Equal(dec("249.71")), "current %s", f.currentBalance())
	assert.True(t, rec.CurrentBalance.Equal(dec("249.71")))
}

func TestRecomputeFrom_ExcludesTransaction(t *testing.T) {
	f := newFixture(t, "USD", "1000.00")
	f.seedScenario()

	rec, err := f.svc.RecomputeFrom(f.ctx, f.acct.ID, day(2), "t2")
	require.NoError(t, err)
	assert.True(t, f.snapshot(day(2)).Equal(dec("950")))

	// t2 is still booked, so the current balance keeps it.
	assert.True(t, rec.CurrentBalance.Equal(dec("920")), "current %s", rec.CurrentBalance)
	assert.True(t, f.currentBalance().Equal(dec("920")))
}

func TestRecomputeFrom_Validation(t *testing.T) {
	f := newFixture(t, "USD", "1000.00")

	_, err := f.svc.RecomputeFrom(f.ctx, "acc_missing", day(1), "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.RecomputeFrom(f.ctx, f.acct.ID, date.Date{}, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRecompute_FailureLeavesCurrentBalance(t *testing.T) {
	base := memory.NewManager()
	store := &failingStore{StorageManager: base, snaps: &failingSnapshots{SnapshotStore: base.SnapshotStore(), failOn: day(4)}}
	f := newFixtureWithStore(t, store, "USD", "1000.00")
	f.book("t1", day(1), "-50.00")

	_, err := f.svc.RecomputeFrom(f.ctx, f.acct.ID, day(1), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, f.currentBalance().Equal(dec("1000")), "current balance refreshed after failed recompute")
	assert.Equal(t, 0, f.svc.locks.held())
}

func TestRebuild_RecoversFromPartialWindow(t *testing.T) {
	base := memory.NewManager()
	snaps := &failingSnapshots{SnapshotStore: base.SnapshotStore()}
	store := &failingStore{StorageManager: base, snaps: snaps}
	f := newFixtureWithStore(t, store, "USD", "1000.00")
	f.seedScenario()
	snaps.failOn = day(6)

	// The anchor is saved but its window stops half way.
	_, err := f.svc.UpsertAnchor(f.ctx, f.acct.ID, day(4), dec("900.00"), f.cat.ID)
	require.Error(t, err)
	require.Len(t, f.anchors(), 1)
	assert.True(t, f.snapshot(day(5)).Equal(dec("900")))
	assert.True(t, f.snapshot(day(7)).Equal(dec("920")), "days past the failure keep their old balance")

	snaps.failOn = date.Date{}
	_, err = f.svc.Rebuild(f.ctx, f.acct.ID)
	require.NoError(t, err)
	for d := range date.NewRange(day(1), day(10)).Days() {
		sum, err := base.TransactionStore().SumAmounts(f.ctx, f.acct.ID, d.End(time.UTC), "")
		require.NoError(t, err)
		assert.True(t, f.snapshot(d).Equal(f.acct.StartingBalance.Add(sum)), "day %s", d)
	}
	assert.True(t, f.currentBalance().Equal(dec("900")))
}

func TestApply_MutateErrorSkipsRecompute(t *testing.T) {
	f := newFixture(t, "USD", "1000.00")

	boom := errors.New("boom")
	_, err := f.svc.Apply(f.ctx, f.acct.ID, day(1), "", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	latest, err := f.store.SnapshotStore().LatestSnapshot(f.ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestApply_WritesThenRecomputes(t *testing.T) {
	f := newFixture(t, "USD", "1000.00")

	rec, err := f.svc.Apply(f.ctx, f.acct.ID, day(6), "", func(ctx context.Context) error {
		f.book("t6", day(6), "-40.00")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, date.NewRange(day(6), day(10)), date.NewRange(rec.From, rec.To))
	assert.True(t, f.snapshot(day(6)).Equal(dec("960")))
	assert.True(t, f.currentBalance().Equal(dec("960")))
}

func TestRebuild(t *testing.T) {
	f := newFixture(t, "USD", "1000.00")
	f.seedScenario()
	res, err := f.svc.UpsertAnchor(f.ctx, f.acct.ID, day(5), dec("500.00"), f.cat.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Anchor)

	// corrupt the cache, then rebuild it from the ledger
	require.NoError(t, f.store.SnapshotStore().UpsertSnapshot(f.ctx, &models.BalanceSnapshot{
		AccountID: f.acct.ID, Date: day(3), Balance: dec("1.00"),
	}))
	require.NoError(t, f.store.SnapshotStore().UpsertSnapshot(f.ctx, &models.BalanceSnapshot{
		AccountID: f.acct.ID, Date: date.New(2024, time.December, 1), Balance: dec("1.00"),
	}))

	rec, err := f.svc.Rebuild(f.ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, day(1), rec.From)
	assert.Equal(t, day(10), rec.To)
	assert.Equal(t, 10, rec.Days)

	assert.True(t, f.snapshot(day(3)).Equal(dec("920")))
	assert.True(t, f.snapshot(day(5)).Equal(dec("500")))
	_, err = f.store.SnapshotStore().GetSnapshot(f.ctx, f.acct.ID, date.New(2024, time.December, 1))
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.True(t, f.currentBalance().Equal(dec("500")))
}

func TestAccountLocks_Released(t *testing.T) {
	l := newAccountLocks()
	unlockA := l.lock("a")
	unlockB := l.lock("b")
	assert.Equal(t, 2, l.held())

	done := make(chan struct{})
	go func() {
		release := l.lock("a")
		release()
		close(done)
	}()

	unlockA()
	<-done
	unlockB()
	assert.Equal(t, 0, l.held())
}
