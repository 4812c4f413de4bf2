package confirmation

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/availability"
)

const icsLocalLayout = "20060102T150405"

// EventWindow is the local start and end of a booked event.
type EventWindow struct {
	StartDate availability.Date
	Start     WallClock
	EndDate   availability.Date
	End       WallClock
}

// StartTime is the absolute start instant in loc.
func (e EventWindow) StartTime(loc *time.Location) time.Time {
	return e.StartDate.At(int(e.Start), loc)
}

// EndTime is the absolute end instant in loc.
func (e EventWindow) EndTime(loc *time.Location) time.Time {
	return e.EndDate.At(int(e.End), loc)
}

// Window derives the event window from the booking's date and slot label. An
// end before the start falls on the next civil day; an end equal to the start
// is a zero-length event and is rejected.
func Window(b *Booking) (EventWindow, error) {
	start, end, err := ParseSlotLabel(b.SlotLabel)
	if err != nil {
		return EventWindow{}, err
	}
	if end == start {
		return EventWindow{}, apperr.Validation("timeSlotDisplay", "%q starts and ends at the same time", b.SlotLabel)
	}
	win := EventWindow{StartDate: b.EventDate, Start: start, EndDate: b.EventDate, End: end}
	if end < start {
		win.EndDate = b.EventDate.AddDays(1)
	}
	return win, nil
}

func localStamp(d availability.Date, c WallClock) string {
	return fmt.Sprintf("%04d%02d%02dT%02d%02d00", d.Year, d.Month, d.Day, c.Hour(), c.Minute())
}

func param(key, value string) ics.PropertyParameter {
	return &ics.KeyValues{Key: key, Value: []string{value}}
}

// RenderICS renders b as a single-event VCALENDAR in the renderer's zone.
// A malformed slot label fails before any output is produced.
func (r *Renderer) RenderICS(b *Booking) (string, error) {
	win, err := Window(b)
	if err != nil {
		return "", err
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Booking confirmation for %s.\n\n", b.EventName)
	fmt.Fprintf(&desc, "Contact: %s (%s)\n\n", b.ContactName, b.Email)
	if b.SpecialRequests != "" {
		fmt.Fprintf(&desc, "Notes: %s\n\n", b.SpecialRequests)
	}
	fmt.Fprintf(&desc, "Booked through %s.", r.brand)

	location := b.Location
	if location == "" {
		location = placeholderLocation
	}
	tzid := r.loc.String()

	cal := ics.NewCalendar()
	cal.SetProductId(fmt.Sprintf("-//%s//Booking Confirmation//EN", r.brand))
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodRequest)
	addVTimezone(cal, r.loc, win.StartDate.Year)

	event := cal.AddEvent(r.newUID())
	event.SetDtStampTime(r.now().UTC())
	event.SetProperty(ics.ComponentPropertyDtStart, localStamp(win.StartDate, win.Start), param("TZID", tzid))
	event.SetProperty(ics.ComponentPropertyDtEnd, localStamp(win.EndDate, win.End), param("TZID", tzid))
	event.SetSummary(b.EventName)
	event.SetDescription(desc.String())
	event.SetLocation(location)
	event.SetStatus(ics.ObjectStatusConfirmed)
	event.SetProperty(ics.ComponentPropertyOrganizer, "mailto:"+r.fromEmail, param("CN", displayName(r.fromName)))
	event.AddProperty(ics.ComponentPropertyAttendee, "mailto:"+b.Email,
		param("CN", displayName(b.ContactName)),
		param("ROLE", "REQ-PARTICIPANT"),
		param("RSVP", "FALSE"),
	)
	return cal.Serialize(ics.WithNewLineWindows), nil
}

// displayName strips characters a CN parameter cannot carry.
func displayName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
