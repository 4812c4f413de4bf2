package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/availability"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

const googleCollaborator = "google-calendar"

var calendarTracer = otel.Tracer("bundlebooth.internal.calendar")

// GoogleProvider reads free/busy data from and inserts events into one Google calendar.
type GoogleProvider struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	logger     *logging.Logger
}

// NewGoogleProvider builds a provider for calendarID. opts carry credentials
// (option.WithCredentialsFile) or a test endpoint (option.WithEndpoint).
func NewGoogleProvider(ctx context.Context, calendarID string, loc *time.Location, logger *logging.Logger, opts ...option.ClientOption) (*GoogleProvider, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: google service: %w", err)
	}
	return &GoogleProvider{svc: svc, calendarID: calendarID, loc: loc, logger: logger}, nil
}

// BusyIntervals runs a FreeBusy query over [from, to). A response without an
// entry for the calendar, or with per-calendar errors, is ErrNoCalendarData.
func (p *GoogleProvider) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	ctx, span := calendarTracer.Start(ctx, "google.freebusy")
	defer span.End()
	span.SetAttributes(attribute.String("bundlebooth.calendar_id", p.calendarID))

	resp, err := p.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  from.Format(time.RFC3339),
		TimeMax:  to.Format(time.RFC3339),
		TimeZone: p.loc.String(),
		Items:    []*gcal.FreeBusyRequestItem{{Id: p.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Upstream(googleCollaborator, fmt.Errorf("freebusy query: %w", err))
	}

	entry, ok := resp.Calendars[p.calendarID]
	if !ok {
		return nil, apperr.Upstream(googleCollaborator, availability.ErrNoCalendarData)
	}
	if len(entry.Errors) > 0 {
		p.logger.Warn("google freebusy returned calendar errors", "calendar_id", p.calendarID, "reason", entry.Errors[0].Reason)
		return nil, apperr.Upstream(googleCollaborator, availability.ErrNoCalendarData)
	}

	out := make([]availability.Interval, 0, len(entry.Busy))
	for _, period := range entry.Busy {
		start, errStart := time.Parse(time.RFC3339, period.Start)
		end, errEnd := time.Parse(time.RFC3339, period.End)
		if err := errors.Join(errStart, errEnd); err != nil {
			return nil, apperr.Upstream(googleCollaborator, fmt.Errorf("parse busy period: %w", err))
		}
		iv, err := busyInterval(googleCollaborator, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

// CreateEvent inserts a confirmed event in the business timezone.
func (p *GoogleProvider) CreateEvent(ctx context.Context, req EventRequest) (*Event, error) {
	ctx, span := calendarTracer.Start(ctx, "google.events.insert")
	defer span.End()

	event := &gcal.Event{
		Summary:     req.Subject,
		Description: req.BodyHTML,
		Location:    req.Location,
		Status:      "confirmed",
		Start:       &gcal.EventDateTime{DateTime: req.Start.In(p.loc).Format(time.RFC3339), TimeZone: p.loc.String()},
		End:         &gcal.EventDateTime{DateTime: req.End.In(p.loc).Format(time.RFC3339), TimeZone: p.loc.String()},
	}
	if req.AttendeeEmail != "" {
		event.Attendees = []*gcal.EventAttendee{{Email: req.AttendeeEmail, DisplayName: req.AttendeeName}}
	}

	created, err := p.svc.Events.Insert(p.calendarID, event).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Upstream(googleCollaborator, fmt.Errorf("insert event: %w", err))
	}
	p.logger.Info("calendar event created", "provider", "google", "event_id", created.Id)
	return &Event{ID: created.Id, Link: created.HtmlLink}, nil
}

var _ Provider = (*GoogleProvider)(nil)
