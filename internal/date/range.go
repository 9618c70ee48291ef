package date

import (
	"fmt"
	"iter"
)

// Range is an inclusive span of calendar days.
type Range struct{ From, To Date }

// NewRange returns the inclusive range [from, to].
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Empty reports whether the range contains no day.
func (r Range) Empty() bool { return r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From) }

// Len returns the number of days in the range.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.To.Sub(r.From) + 1
}

// Contains reports whether d is inside the range, boundaries included.
func (r Range) Contains(d Date) bool {
	return !r.Empty() && !d.Before(r.From) && !d.After(r.To)
}

// Days yields every day of the range in ascending order.
// Each call returns a fresh sequence; nothing is shared between iterations.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		if r.Empty() {
			return
		}
		for d := r.From; !d.After(r.To); d = d.Add(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r Range) String() string {
	if r.Empty() {
		return "[]"
	}
	return fmt.Sprintf("[%s..%s]", r.From, r.To)
}
