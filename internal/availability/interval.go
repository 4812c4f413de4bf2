// Package availability derives bookable slots for a day from calendar busy time.
package availability

import (
	"slices"
	"time"

	"github.com/bundlebooth/booking-services/internal/apperr"
)

// Interval is a half-open time range [Start, End). Comparisons use instants,
// so intervals reported in different UTC offsets compare correctly.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval returns an interval or a ValidationError when start >= end.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, apperr.Validation("interval", "start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports strict overlap; intervals that only touch do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Merge collapses busy intervals into a sorted, non-overlapping sequence.
// Touching intervals are merged, so adjacent outputs satisfy a.End < b.Start.
// An interval with Start >= End is a caller defect and yields an InvariantError;
// providers must reject such data before it gets here.
func Merge(busy []Interval) ([]Interval, error) {
	sorted := make([]Interval, 0, len(busy))
	for _, iv := range busy {
		if !iv.Start.Before(iv.End) {
			return nil, apperr.Invariant("busy interval %s..%s is empty or inverted",
				iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
		}
		sorted = append(sorted, iv)
	}
	if len(sorted) == 0 {
		return sorted, nil
	}
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})

	merged := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current), nil
}
