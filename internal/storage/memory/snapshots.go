package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
)

type snapshotKey struct {
	accountID string
	day       date.Date
}

// SnapshotStore keeps balance snapshots in memory keyed by (account, day).
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[snapshotKey]models.BalanceSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[snapshotKey]models.BalanceSnapshot)}
}

func (s *SnapshotStore) UpsertSnapshot(_ context.Context, snap *models.BalanceSnapshot) error {
	if snap.AccountID == "" || snap.Date.IsZero() {
		return fmt.Errorf("snapshot requires account and date")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{snap.AccountID, snap.Date}] = *snap
	return nil
}

func (s *SnapshotStore) GetSnapshot(_ context.Context, accountID string, day date.Date) (*models.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[snapshotKey{accountID, day}]
	if !ok {
		return nil, fmt.Errorf("snapshot %s on %s: %w", accountID, day, models.ErrNotFound)
	}
	return &snap, nil
}

// latest returns the newest snapshot accepted by keep. Caller holds the lock.
func (s *SnapshotStore) latest(accountID string, keep func(date.Date) bool) *models.BalanceSnapshot {
	var best *models.BalanceSnapshot
	for k, snap := range s.snapshots {
		if k.accountID != accountID || !keep(k.day) {
			continue
		}
		if best == nil || k.day.After(best.Date) {
			snap := snap
			best = &snap
		}
	}
	return best
}

func (s *SnapshotStore) LatestSnapshot(_ context.Context, accountID string) (*models.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(accountID, func(date.Date) bool { return true }), nil
}

func (s *SnapshotStore) LatestSnapshotOnOrBefore(_ context.Context, accountID string, day date.Date) (*models.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(accountID, func(d date.Date) bool { return !d.After(day) }), nil
}

func (s *SnapshotStore) ListSnapshots(_ context.Context, accountID string, r date.Range) ([]*models.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.BalanceSnapshot
	for k, snap := range s.snapshots {
		if k.accountID != accountID || !r.Contains(k.day) {
			continue
		}
		snap := snap
		out = append(out, &snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *SnapshotStore) DeleteSnapshots(_ context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for k := range s.snapshots {
		if k.accountID == accountID {
			delete(s.snapshots, k)
			count++
		}
	}
	return count, nil
}
