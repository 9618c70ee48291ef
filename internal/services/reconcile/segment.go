package reconcile

import (
	"context"
	"fmt"

	"github.com/bobmcallan/tally/internal/date"
)

// resolveWindow returns the days a mutation on from must rewrite.
//
// The window stops the day before the next anchor, since that anchor pins
// every balance from its own day on. Without a later anchor it extends to the
// latest snapshot when that is not before from, and otherwise to today. The
// end never passes today; a window ending before from is empty.
func (s *Service) resolveWindow(ctx context.Context, accountID string, from date.Date, excludeID string) (date.Range, error) {
	loc := s.loc()
	today := s.Today()

	next, err := s.storage.TransactionStore().NextAnchorAfter(ctx, accountID, from.End(loc), excludeID)
	if err != nil {
		return date.Range{}, fmt.Errorf("failed to find next anchor: %w", err)
	}

	var to date.Date
	if next != nil {
		to = date.Of(next.BookedAt, loc).Add(-1)
	} else {
		latest, err := s.storage.SnapshotStore().LatestSnapshot(ctx, accountID)
		if err != nil {
			return date.Range{}, fmt.Errorf("failed to read latest snapshot: %w", err)
		}
		if latest != nil && !latest.Date.Before(from) {
			to = latest.Date
		} else {
			to = today
		}
	}

	if to.After(today) {
		to = today
	}
	return date.NewRange(from, to), nil
}
