// Package calendar adapts external calendars (Google Calendar, Microsoft Graph)
// to the busy-interval source used by availability and to booking event creation.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/availability"
)

// Provider is an external calendar that reports busy time and accepts events.
// Each call is a single request with no retry.
type Provider interface {
	availability.BusySource
	CreateEvent(ctx context.Context, req EventRequest) (*Event, error)
}

// EventRequest describes a calendar entry for a booking.
type EventRequest struct {
	Subject       string
	BodyHTML      string
	Location      string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	AttendeeName  string
}

// Event identifies an entry created in the provider.
type Event struct {
	ID   string
	Link string
}

// busyInterval converts a provider busy range, rejecting inverted ranges as
// upstream data errors so they never reach availability.Merge.
func busyInterval(collaborator string, start, end time.Time) (availability.Interval, error) {
	iv, err := availability.NewInterval(start, end)
	if err != nil {
		return availability.Interval{}, apperr.Upstream(collaborator, fmt.Errorf("busy range %s..%s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), err))
	}
	return iv, nil
}
