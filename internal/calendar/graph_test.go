package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/availability"
)

type graphFake struct {
	schedule    string
	status      int
	lastBody    map[string]any
	lastAuth    string
	tokenIssued int
}

func (f *graphFake) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		f.tokenIssued++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"graph-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/users/owner@bundlebooth.ca/calendar/getSchedule", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastBody))
		if f.status != 0 {
			w.WriteHeader(f.status)
		}
		_, _ = w.Write([]byte(f.schedule))
	})
	mux.HandleFunc("/users/owner@bundlebooth.ca/events", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"AAMk-1","webLink":"https://outlook.office365.com/owa/?itemid=AAMk-1"}`))
	})
	return mux
}

func newGraphTestProvider(t *testing.T, fake *graphFake) *GraphProvider {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)
	client := NewGraphHTTPClient(context.Background(), GraphCredentials{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
	})
	return NewGraphProvider(client, "owner@bundlebooth.ca", loc, nil).WithBaseURL(srv.URL)
}

func TestGraphBusyIntervals(t *testing.T) {
	fake := &graphFake{schedule: `{"value":[{"scheduleId":"owner@bundlebooth.ca","scheduleItems":[
		{"status":"busy","start":{"dateTime":"2024-07-15T15:00:00.0000000","timeZone":"UTC"},"end":{"dateTime":"2024-07-15T17:00:00.0000000","timeZone":"UTC"}},
		{"status":"free","start":{"dateTime":"2024-07-15T18:00:00.0000000","timeZone":"UTC"},"end":{"dateTime":"2024-07-15T19:00:00.0000000","timeZone":"UTC"}},
		{"status":"tentative","start":{"dateTime":"2024-07-15T20:00:00","timeZone":"America/Toronto"},"end":{"dateTime":"2024-07-15T21:00:00","timeZone":"America/Toronto"}}
	]}]}`}
	p := newGraphTestProvider(t, fake)

	from := time.Date(2024, 7, 15, 13, 0, 0, 0, time.UTC)
	busy, err := p.BusyIntervals(context.Background(), from, from.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.True(t, busy[0].Start.Equal(time.Date(2024, 7, 15, 15, 0, 0, 0, time.UTC)))
	assert.True(t, busy[1].Start.Equal(time.Date(2024, 7, 16, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Bearer graph-token", fake.lastAuth)
	assert.Equal(t, 1, fake.tokenIssued)
	start := fake.lastBody["startTime"].(map[string]any)
	assert.Equal(t, "2024-07-15T13:00:00", start["dateTime"])
	assert.Equal(t, "UTC", start["timeZone"])
}

func TestGraphBusyIntervalsNoData(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
	}{
		{"empty value", `{"value":[]}`},
		{"schedule error", `{"value":[{"scheduleId":"owner@bundlebooth.ca","error":{"message":"mailbox not found","responseCode":"ErrorMailboxNotFound"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newGraphTestProvider(t, &graphFake{schedule: tt.schedule})
			_, err := p.BusyIntervals(context.Background(), time.Now(), time.Now().Add(time.Hour))
			require.Error(t, err)
			assert.ErrorIs(t, err, availability.ErrNoCalendarData)
		})
	}
}

func TestGraphBusyIntervalsHTTPError(t *testing.T) {
	p := newGraphTestProvider(t, &graphFake{status: http.StatusForbidden, schedule: `{"error":{"code":"ErrorAccessDenied"}}`})
	_, err := p.BusyIntervals(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.True(t, apperr.IsUpstream(err))
	assert.NotErrorIs(t, err, availability.ErrNoCalendarData)
}

func TestGraphCreateEvent(t *testing.T) {
	fake := &graphFake{}
	p := newGraphTestProvider(t, fake)

	start := time.Date(2024, 7, 15, 22, 0, 0, 0, time.UTC)
	event, err := p.CreateEvent(context.Background(), EventRequest{
		Subject:       "Booking: Jordan Lee",
		BodyHTML:      "<p>Client: Jordan Lee</p>",
		Start:         start,
		End:           start.Add(3 * time.Hour),
		AttendeeEmail: "jordan@example.com",
		AttendeeName:  "Jordan Lee",
	})
	require.NoError(t, err)
	assert.Equal(t, "AAMk-1", event.ID)
	assert.Equal(t, "https://outlook.office365.com/owa/?itemid=AAMk-1", event.Link)

	startField := fake.lastBody["start"].(map[string]any)
	assert.Equal(t, "2024-07-15T18:00:00", startField["dateTime"])
	assert.Equal(t, "America/Toronto", startField["timeZone"])
	body := fake.lastBody["body"].(map[string]any)
	assert.Equal(t, "HTML", body["contentType"])
	assert.NotContains(t, fake.lastBody, "location")
}
