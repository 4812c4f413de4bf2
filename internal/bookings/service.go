package bookings

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bundlebooth/booking-services/internal/availability"
	"github.com/bundlebooth/booking-services/internal/calendar"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

var bookingsTracer = otel.Tracer("bundlebooth.internal.bookings")

// CreateRequest is the body of POST /api/bookings.
type CreateRequest struct {
	Start        time.Time    `json:"start" validate:"required"`
	End          time.Time    `json:"end" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	Email        string       `json:"email" validate:"required,email"`
	EventDetails EventDetails `json:"eventDetails"`
}

// Created is the result of a successful booking.
type Created struct {
	Booking   Booking `json:"booking"`
	EventID   string  `json:"eventId,omitempty"`
	EventLink string  `json:"eventLink,omitempty"`
}

// Service records bookings and mirrors them into the business calendar.
type Service struct {
	repo     *Repository
	calendar calendar.Provider
	logger   *logging.Logger
	now      func() time.Time
}

// NewService constructs a bookings service. cal may be nil, in which case no
// calendar event is created.
func NewService(repo *Repository, cal calendar.Provider, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, calendar: cal, logger: logger, now: time.Now}
}

// Create validates the window, creates the calendar event and records the
// booking as confirmed. A calendar failure records nothing.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()

	if _, err := availability.NewInterval(req.Start, req.End); err != nil {
		return nil, err
	}

	b := Booking{
		ID:           "booking_" + uuid.NewString(),
		Start:        req.Start,
		End:          req.End,
		Name:         req.Name,
		Email:        req.Email,
		EventDetails: req.EventDetails,
		Status:       StatusConfirmed,
		CreatedAt:    s.now().UTC(),
	}
	span.SetAttributes(attribute.String("bundlebooth.booking_id", b.ID))

	out := &Created{}
	if s.calendar != nil {
		event, err := s.calendar.CreateEvent(ctx, calendar.EventRequest{
			Subject:       "Booking: " + req.Name,
			BodyHTML:      eventBody(req),
			Location:      req.EventDetails.Location,
			Start:         req.Start,
			End:           req.End,
			AttendeeEmail: req.Email,
			AttendeeName:  req.Name,
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("bookings: create calendar event: %w", err)
		}
		b.CalendarEventID = event.ID
		out.EventID = event.ID
		out.EventLink = event.Link
	}

	if err := s.repo.Insert(ctx, b); err != nil {
		return nil, err
	}
	out.Booking = b
	s.logger.Info("booking confirmed", "booking_id", b.ID, "calendar_event_id", b.CalendarEventID)
	return out, nil
}

// List returns every booking recorded by this process.
func (s *Service) List(ctx context.Context) []Booking {
	return s.repo.List(ctx)
}

// MarkPaid records a successful payment against a booking.
func (s *Service) MarkPaid(ctx context.Context, bookingID, paymentIntentID string) (*Booking, error) {
	b, err := s.repo.MarkPaid(ctx, bookingID, paymentIntentID, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking paid", "booking_id", bookingID, "payment_intent_id", paymentIntentID)
	return b, nil
}

func eventBody(req CreateRequest) string {
	orDefault := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	guests := "Not specified"
	if req.EventDetails.GuestCount > 0 {
		guests = strconv.Itoa(req.EventDetails.GuestCount)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Client: %s</p>", html.EscapeString(req.Name))
	fmt.Fprintf(&b, "<p>Email: %s</p>", html.EscapeString(req.Email))
	fmt.Fprintf(&b, "<p>Event: %s</p>", html.EscapeString(orDefault(req.EventDetails.EventName, "Not specified")))
	fmt.Fprintf(&b, "<p>Location: %s</p>", html.EscapeString(orDefault(req.EventDetails.Location, "Not specified")))
	fmt.Fprintf(&b, "<p>Guests: %s</p>", guests)
	fmt.Fprintf(&b, "<p>Notes: %s</p>", html.EscapeString(orDefault(req.EventDetails.Notes, "None")))
	return b.String()
}
