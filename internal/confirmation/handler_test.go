package confirmation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlebooth/booking-services/internal/notify"
	"github.com/bundlebooth/booking-services/internal/observability/metrics"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	err  error
}

func (f *fakeSender) Name() string { return "fake" }

func (f *fakeSender) Send(_ context.Context, msg notify.EmailMessage) (*notify.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, msg)
	return &notify.SendResult{MessageID: "msg-1"}, nil
}

const validBody = `{
	"contactName": "Jordan Lee",
	"email": "jordan@example.com",
	"eventName": "Spring Gala",
	"eventDate": "2024-07-15",
	"timeSlotDisplay": "6:00 PM - 9:00 PM",
	"eventLocation": "Distillery District",
	"guestCount": 80,
	"services": [{"name": "Photo Booth", "price": 300}, {"name": "DJ", "price": "200"}],
	"selectedBundle": {"kind": "bundle", "name": "Party Pack", "percentage": 10}
}`

func newTestHandler(t *testing.T, sender notify.EmailSender) (*Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger := logging.NewWithWriter(&bytes.Buffer{}, "debug")
	svc := NewService(newTestRenderer(t, "America/New_York"), sender, metrics.NewBookingMetrics(reg), logger)
	return NewHandler(svc, "email-backend", logger), reg
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestSendBookingEmail(t *testing.T) {
	sender := &fakeSender{}
	h, reg := newTestHandler(t, sender)

	rec := post(h.SendBookingEmail, validBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SendResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "msg-1", resp.MessageID)
	assert.False(t, resp.Timestamp.IsZero())

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "jordan@example.com", msg.To)
	assert.Equal(t, "Jordan Lee", msg.ToName)
	assert.Equal(t, "Booking Confirmation - Spring Gala", msg.Subject)
	assert.Contains(t, msg.HTML, "C$450.00")
	assert.Contains(t, msg.Body, "Total: C$450.00")

	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, "booking.ics", att.Filename)
	assert.Equal(t, "text/calendar; method=REQUEST; charset=UTF-8", att.ContentType)
	assert.Contains(t, string(att.Content), "DTSTART;TZID=America/New_York:20240715T180000")

	count, err := testutil.GatherAndCount(reg, "bundlebooth_email_sent_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSendBookingEmailValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", ``, "body: request body is required"},
		{"missing contact", `{"email":"a@b.co","eventName":"X","eventDate":"2024-07-15","timeSlotDisplay":"6:00 PM - 9:00 PM"}`, "contactName: is required"},
		{"bad email", `{"contactName":"A","email":"nope","eventName":"X","eventDate":"2024-07-15","timeSlotDisplay":"6:00 PM - 9:00 PM"}`, "email: must be a valid email address"},
		{"bad date", `{"contactName":"A","email":"a@b.co","eventName":"X","eventDate":"07/15/2024","timeSlotDisplay":"6:00 PM - 9:00 PM"}`, "eventDate: must match layout 2006-01-02"},
		{"negative guests", `{"contactName":"A","email":"a@b.co","eventName":"X","eventDate":"2024-07-15","timeSlotDisplay":"6:00 PM - 9:00 PM","guestCount":-1}`, "guestCount: must be gte 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			h, _ := newTestHandler(t, sender)
			rec := post(h.SendBookingEmail, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.want, resp["error"])
			assert.Empty(t, sender.sent)
		})
	}
}

func TestSendBookingEmailBadSlotLabelSendsNothing(t *testing.T) {
	sender := &fakeSender{}
	h, _ := newTestHandler(t, sender)

	body := strings.Replace(validBody, "6:00 PM - 9:00 PM", "invalid", 1)
	rec := post(h.SendBookingEmail, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeSlotDisplay")
	assert.Empty(t, sender.sent)
}

func TestSendBookingEmailProviderFailure(t *testing.T) {
	h, reg := newTestHandler(t, &fakeSender{err: errors.New("brevo returned 401")})

	rec := post(h.SendBookingEmail, validBody)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "fake unavailable")
	assert.NotContains(t, rec.Body.String(), "401")

	expected := `
# HELP bundlebooth_email_sent_total Confirmation emails by provider and status
# TYPE bundlebooth_email_sent_total counter
bundlebooth_email_sent_total{provider="fake",status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bundlebooth_email_sent_total"))
}

func TestRenderEndpoint(t *testing.T) {
	sender := &fakeSender{}
	h, _ := newTestHandler(t, sender)

	rec := post(h.Render, validBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp renderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.HTML, "Spring Gala")

	ics, err := base64.StdEncoding.DecodeString(resp.ICS)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ics), "BEGIN:VCALENDAR\r\n"))
	assert.Empty(t, sender.sent)
}

func TestBanner(t *testing.T) {
	h, _ := newTestHandler(t, &fakeSender{})
	rec := httptest.NewRecorder()
	h.Banner(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "OK", resp["status"])
	assert.Equal(t, "email-backend", resp["service"])
	assert.NotEmpty(t, resp["timestamp"])
}
