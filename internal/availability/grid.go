package availability

import (
	"fmt"
	"time"

	"github.com/bundlebooth/booking-services/internal/apperr"
)

const minutesPerDay = 24 * 60

// Date is a civil calendar date with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, apperr.Validation("date", "invalid date")
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// AddDays moves the date by n civil days.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// At returns the instant at minute-of-day m on d in loc.
func (d Date) At(m int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, m/60, m%60, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// SlotSpec is one row of the slot grid configuration, in minutes after midnight.
// An End of 0 or 1440, or any End not after Start, means the slot ends on the
// following civil day.
type SlotSpec struct {
	Start int
	End   int
	Label string
}

// DefaultSlotSpecs is the five three-hour blocks from 09:00 to midnight.
func DefaultSlotSpecs() []SlotSpec {
	return []SlotSpec{
		{Start: 9 * 60, End: 12 * 60, Label: "9:00 AM - 12:00 PM"},
		{Start: 12 * 60, End: 15 * 60, Label: "12:00 PM - 3:00 PM"},
		{Start: 15 * 60, End: 18 * 60, Label: "3:00 PM - 6:00 PM"},
		{Start: 18 * 60, End: 21 * 60, Label: "6:00 PM - 9:00 PM"},
		{Start: 21 * 60, End: 24 * 60, Label: "9:00 PM - 12:00 AM"},
	}
}

// Slot is a candidate booking interval. Booked is only meaningful after Resolve.
type Slot struct {
	Display string    `json:"display"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Booked  bool      `json:"booked"`
}

// Interval returns the slot's time range.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Grid lays the slot specs onto date in loc, preserving spec order.
func Grid(date Date, loc *time.Location, specs []SlotSpec) []Slot {
	if loc == nil {
		loc = time.UTC
	}
	slots := make([]Slot, 0, len(specs))
	for _, spec := range specs {
		endDate, endMinute := date, spec.End
		if spec.End >= minutesPerDay || spec.End <= spec.Start {
			endDate = date.AddDays(1)
			endMinute = spec.End % minutesPerDay
		}
		slots = append(slots, Slot{
			Display: spec.Label,
			Start:   date.At(spec.Start, loc),
			End:     endDate.At(endMinute, loc),
		})
	}
	return slots
}
