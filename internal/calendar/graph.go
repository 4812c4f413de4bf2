package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/availability"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

const (
	graphCollaborator = "graph-calendar"
	graphBaseURL      = "https://graph.microsoft.com/v1.0"
	graphLocalLayout  = "2006-01-02T15:04:05"
)

// GraphCredentials are the app-only credentials for Microsoft Graph.
type GraphCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// TokenURL overrides the Microsoft identity endpoint (for testing).
	TokenURL string
}

// NewGraphHTTPClient returns an HTTP client that attaches client-credentials
// bearer tokens for the Graph default scope.
func NewGraphHTTPClient(ctx context.Context, creds GraphCredentials) *http.Client {
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(creds.TenantID))
	}
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return cfg.Client(ctx)
}

// GraphProvider talks to one user's calendar through Microsoft Graph.
type GraphProvider struct {
	client   *http.Client
	baseURL  string
	ownerUPN string
	loc      *time.Location
	logger   *logging.Logger
}

// NewGraphProvider builds a provider for ownerUPN. client must already carry
// authentication, see NewGraphHTTPClient.
func NewGraphProvider(client *http.Client, ownerUPN string, loc *time.Location, logger *logging.Logger) *GraphProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GraphProvider{client: client, baseURL: graphBaseURL, ownerUPN: ownerUPN, loc: loc, logger: logger}
}

// WithBaseURL overrides the Graph API base URL (for testing).
func (p *GraphProvider) WithBaseURL(baseURL string) *GraphProvider {
	if baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return p
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

func (d graphDateTime) parse() (time.Time, error) {
	loc := time.UTC
	if d.TimeZone != "" && !strings.EqualFold(d.TimeZone, "UTC") {
		l, err := time.LoadLocation(d.TimeZone)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown time zone %q", d.TimeZone)
		}
		loc = l
	}
	return time.ParseInLocation(graphLocalLayout, d.DateTime, loc)
}

type scheduleRequest struct {
	Schedules                []string      `json:"schedules"`
	StartTime                graphDateTime `json:"startTime"`
	EndTime                  graphDateTime `json:"endTime"`
	AvailabilityViewInterval int           `json:"availabilityViewInterval"`
}

type scheduleResponse struct {
	Value []struct {
		ScheduleID    string `json:"scheduleId"`
		ScheduleItems []struct {
			Status string        `json:"status"`
			Start  graphDateTime `json:"start"`
			End    graphDateTime `json:"end"`
		} `json:"scheduleItems"`
		Error *struct {
			Message      string `json:"message"`
			ResponseCode string `json:"responseCode"`
		} `json:"error"`
	} `json:"value"`
}

// BusyIntervals calls calendar/getSchedule in UTC. Items marked free are
// skipped. An empty schedule list or a per-schedule error is ErrNoCalendarData.
func (p *GraphProvider) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	ctx, span := calendarTracer.Start(ctx, "graph.get_schedule")
	defer span.End()

	body := scheduleRequest{
		Schedules:                []string{p.ownerUPN},
		StartTime:                graphDateTime{DateTime: from.UTC().Format(graphLocalLayout), TimeZone: "UTC"},
		EndTime:                  graphDateTime{DateTime: to.UTC().Format(graphLocalLayout), TimeZone: "UTC"},
		AvailabilityViewInterval: 30,
	}
	var parsed scheduleResponse
	if err := p.do(ctx, "/users/"+url.PathEscape(p.ownerUPN)+"/calendar/getSchedule", body, &parsed); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(parsed.Value) == 0 {
		return nil, apperr.Upstream(graphCollaborator, availability.ErrNoCalendarData)
	}
	schedule := parsed.Value[0]
	if schedule.Error != nil {
		p.logger.Warn("graph schedule error", "owner", p.ownerUPN, "message", schedule.Error.Message)
		return nil, apperr.Upstream(graphCollaborator, availability.ErrNoCalendarData)
	}

	out := make([]availability.Interval, 0, len(schedule.ScheduleItems))
	for _, item := range schedule.ScheduleItems {
		if strings.EqualFold(item.Status, "free") {
			continue
		}
		start, err := item.Start.parse()
		if err != nil {
			return nil, apperr.Upstream(graphCollaborator, fmt.Errorf("parse schedule start: %w", err))
		}
		end, err := item.End.parse()
		if err != nil {
			return nil, apperr.Upstream(graphCollaborator, fmt.Errorf("parse schedule end: %w", err))
		}
		iv, err := busyInterval(graphCollaborator, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

type graphEmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type graphEvent struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start     graphDateTime `json:"start"`
	End       graphDateTime `json:"end"`
	Location  *struct {
		DisplayName string `json:"displayName"`
	} `json:"location,omitempty"`
	Attendees []graphAttendee `json:"attendees,omitempty"`
}

type graphAttendee struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
	Type         string            `json:"type"`
}

// CreateEvent creates an event on the owner's default calendar with local wall
// times tagged by the business timezone.
func (p *GraphProvider) CreateEvent(ctx context.Context, req EventRequest) (*Event, error) {
	ctx, span := calendarTracer.Start(ctx, "graph.events.create")
	defer span.End()

	var event graphEvent
	event.Subject = req.Subject
	event.Body.ContentType = "HTML"
	event.Body.Content = req.BodyHTML
	event.Start = graphDateTime{DateTime: req.Start.In(p.loc).Format(graphLocalLayout), TimeZone: p.loc.String()}
	event.End = graphDateTime{DateTime: req.End.In(p.loc).Format(graphLocalLayout), TimeZone: p.loc.String()}
	if req.Location != "" {
		event.Location = &struct {
			DisplayName string `json:"displayName"`
		}{DisplayName: req.Location}
	}
	if req.AttendeeEmail != "" {
		event.Attendees = []graphAttendee{{
			EmailAddress: graphEmailAddress{Address: req.AttendeeEmail, Name: req.AttendeeName},
			Type:         "required",
		}}
	}

	var created struct {
		ID      string `json:"id"`
		WebLink string `json:"webLink"`
	}
	if err := p.do(ctx, "/users/"+url.PathEscape(p.ownerUPN)+"/events", event, &created); err != nil {
		span.RecordError(err)
		return nil, err
	}
	p.logger.Info("calendar event created", "provider", "graph", "event_id", created.ID)
	return &Event{ID: created.ID, Link: created.WebLink}, nil
}

func (p *GraphProvider) do(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("calendar: graph encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("calendar: graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := p.client.Do(req)
	if err != nil {
		return apperr.Upstream(graphCollaborator, fmt.Errorf("http: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Upstream(graphCollaborator, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream(graphCollaborator, fmt.Errorf("decode: %w", err))
	}
	return nil
}

var _ Provider = (*GraphProvider)(nil)
