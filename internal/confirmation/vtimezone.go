package confirmation

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	propTzOffsetFrom ics.ComponentProperty = "TZOFFSETFROM"
	propTzOffsetTo   ics.ComponentProperty = "TZOFFSETTO"
	propTzName       ics.ComponentProperty = "TZNAME"
	propRRule        ics.ComponentProperty = "RRULE"
)

// zoneTransition is an offset change observed in a location.
type zoneTransition struct {
	at         time.Time // first instant on the new offset, UTC
	fromOffset int
	toOffset   int
	name       string
}

// observance is DAYLIGHT when the change moves clocks forward, so zones
// whose tzdata marks winter time as DST still come out the right way round.
func (tr zoneTransition) observance() ics.ComponentType {
	if tr.toOffset > tr.fromOffset {
		return ics.ComponentDaylight
	}
	return ics.ComponentStandard
}

// transitionsIn lists the offset changes of loc during year, in order.
func transitionsIn(loc *time.Location, year int) []zoneTransition {
	var out []zoneTransition
	cursor := time.Date(year, time.January, 1, 0, 0, 0, 0, loc).UTC()
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc).UTC()
	for cursor.Before(end) {
		next := cursor.Add(time.Hour)
		_, before := cursor.In(loc).Zone()
		_, after := next.In(loc).Zone()
		if before != after {
			at := next
			for m := cursor.Add(time.Minute); m.Before(next); m = m.Add(time.Minute) {
				if _, off := m.In(loc).Zone(); off == after {
					at = m
					break
				}
			}
			name, _ := at.In(loc).Zone()
			out = append(out, zoneTransition{
				at:         at,
				fromOffset: before,
				toOffset:   after,
				name:       name,
			})
		}
		cursor = next
	}
	return out
}

// addVTimezone attaches a VTIMEZONE for loc covering year. Zones with one
// yearly pair of changes get RRULE-based observances. Other zones get fixed
// observances, opened by one that holds the offset in force on January 1.
func addVTimezone(cal *ics.Calendar, loc *time.Location, year int) {
	tz := cal.AddTimezone(loc.String())

	transitions := transitionsIn(loc, year)
	recurring := len(transitions) == 2 &&
		transitions[0].fromOffset == transitions[1].toOffset &&
		transitions[0].toOffset == transitions[1].fromOffset

	if !recurring {
		name, offset := time.Date(year, time.January, 1, 0, 0, 0, 0, loc).Zone()
		kind := ics.ComponentStandard
		if len(transitions) > 0 && transitions[0].observance() == ics.ComponentStandard {
			kind = ics.ComponentDaylight
		}
		addObservance(tz, kind, "19700101T000000", "", offset, offset, name)
	}

	for _, tr := range transitions {
		// Observance onsets are local time on the old offset.
		local := tr.at.In(time.FixedZone("", tr.fromOffset))
		if !recurring {
			addObservance(tz, tr.observance(), local.Format(icsLocalLayout), "", tr.fromOffset, tr.toOffset, tr.name)
			continue
		}
		nth := nthWeekday(local)
		onset := weekdayInMonth(1970, local.Month(), local.Weekday(), nth)
		dtstart := fmt.Sprintf("%04d%02d%02dT%02d%02d%02d",
			onset.Year(), onset.Month(), onset.Day(), local.Hour(), local.Minute(), local.Second())
		rrule := fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s", int(local.Month()), nth, weekdayCode(local.Weekday()))
		addObservance(tz, tr.observance(), dtstart, rrule, tr.fromOffset, tr.toOffset, tr.name)
	}
}

func addObservance(tz *ics.VTimezone, kind ics.ComponentType, dtstart, rrule string, from, to int, name string) {
	var base *ics.ComponentBase
	if kind == ics.ComponentDaylight {
		daylight := &ics.Daylight{}
		tz.Components = append(tz.Components, daylight)
		base = &daylight.ComponentBase
	} else {
		base = &tz.AddStandard().ComponentBase
	}
	base.SetProperty(propTzOffsetFrom, formatOffset(from))
	base.SetProperty(propTzOffsetTo, formatOffset(to))
	base.SetProperty(ics.ComponentPropertyDtStart, dtstart)
	if rrule != "" {
		base.SetProperty(propRRule, rrule)
	}
	base.SetProperty(propTzName, name)
}

// nthWeekday is the ordinal of t's weekday within its month, or -1 for the last.
func nthWeekday(t time.Time) int {
	if t.Day()+7 > daysIn(t.Year(), t.Month()) {
		return -1
	}
	return (t.Day()-1)/7 + 1
}

func weekdayInMonth(year int, month time.Month, wd time.Weekday, nth int) time.Time {
	if nth < 0 {
		last := time.Date(year, month, daysIn(year, month), 0, 0, 0, 0, time.UTC)
		back := (int(last.Weekday()) - int(wd) + 7) % 7
		return last.AddDate(0, 0, -back)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	ahead := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, ahead+(nth-1)*7)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func weekdayCode(wd time.Weekday) string {
	return strings.ToUpper(wd.String()[:2])
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, (seconds%3600)/60)
}
