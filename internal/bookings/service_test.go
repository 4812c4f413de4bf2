package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/availability"
	"github.com/bundlebooth/booking-services/internal/calendar"
)

type fakeCalendar struct {
	mu       sync.Mutex
	requests []calendar.EventRequest
	err      error
}

func (f *fakeCalendar) BusyIntervals(context.Context, time.Time, time.Time) ([]availability.Interval, error) {
	return []availability.Interval{}, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, req calendar.EventRequest) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &calendar.Event{ID: "evt_1", Link: "https://calendar.example/evt_1"}, nil
}

func validRequest() CreateRequest {
	start := time.Date(2024, 7, 15, 18, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	return CreateRequest{
		Start: start,
		End:   start.Add(3 * time.Hour),
		Name:  "Jordan <Lee>",
		Email: "jordan@example.com",
		EventDetails: EventDetails{
			EventName:  "Spring Gala",
			Location:   "Distillery District",
			GuestCount: 80,
		},
	}
}

func TestCreateRecordsBookingAndCalendarEvent(t *testing.T) {
	cal := &fakeCalendar{}
	svc := NewService(NewRepository(), cal, nil)

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.Booking.ID, "booking_"))
	assert.Equal(t, StatusConfirmed, created.Booking.Status)
	assert.Equal(t, "evt_1", created.EventID)
	assert.Equal(t, "https://calendar.example/evt_1", created.EventLink)

	require.Len(t, cal.requests, 1)
	req := cal.requests[0]
	assert.Equal(t, "Booking: Jordan <Lee>", req.Subject)
	assert.Contains(t, req.BodyHTML, "<p>Client: Jordan &lt;Lee&gt;</p>")
	assert.Contains(t, req.BodyHTML, "<p>Guests: 80</p>")
	assert.Contains(t, req.BodyHTML, "<p>Notes: None</p>")

	list := svc.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, created.Booking.ID, list[0].ID)
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	cal := &fakeCalendar{}
	svc := NewService(NewRepository(), cal, nil)

	req := validRequest()
	req.End = req.Start
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, cal.requests)
}

func TestCreateCalendarFailureRecordsNothing(t *testing.T) {
	cal := &fakeCalendar{err: apperr.Upstream("graph-calendar", errors.New("status 503"))}
	svc := NewService(NewRepository(), cal, nil)

	_, err := svc.Create(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperr.IsUpstream(err))
	assert.Empty(t, svc.List(context.Background()))
}

func TestCreateWithoutCalendar(t *testing.T) {
	svc := NewService(NewRepository(), nil, nil)
	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, created.EventID)
	assert.Empty(t, created.Booking.CalendarEventID)
}

func TestMarkPaid(t *testing.T) {
	svc := NewService(NewRepository(), nil, nil)
	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), created.Booking.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Equal(t, "pi_123", paid.PaymentIntentID)
	require.NotNil(t, paid.PaidAt)

	again, err := svc.MarkPaid(context.Background(), created.Booking.ID, "pi_other")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", again.PaymentIntentID)

	_, err = svc.MarkPaid(context.Background(), "booking_missing", "pi_123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryConcurrentInserts(t *testing.T) {
	svc := NewService(NewRepository(), nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), validRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, svc.List(context.Background()), 20)
}

func TestHandlerCreateAndList(t *testing.T) {
	h := NewHandler(NewService(NewRepository(), &fakeCalendar{}, nil), nil)

	body := `{"start":"2024-07-15T18:00:00-04:00","end":"2024-07-15T21:00:00-04:00",
		"name":"Jordan Lee","email":"jordan@example.com","eventDetails":{"eventName":"Spring Gala"}}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Created
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "evt_1", created.EventID)
	assert.Equal(t, "Spring Gala", created.Booking.EventDetails.EventName)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/bookings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, created.Booking.ID, list[0].ID)
}

func TestHandlerCreateValidation(t *testing.T) {
	h := NewHandler(NewService(NewRepository(), nil, nil), nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing email", `{"start":"2024-07-15T18:00:00Z","end":"2024-07-15T21:00:00Z","name":"J"}`, "email: is required"},
		{"bad email", `{"start":"2024-07-15T18:00:00Z","end":"2024-07-15T21:00:00Z","name":"J","email":"nope"}`, "email: must be a valid email address"},
		{"missing start", `{"end":"2024-07-15T21:00:00Z","name":"J","email":"j@example.com"}`, "start: is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(tt.body)))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.want, resp["error"])
		})
	}
}
